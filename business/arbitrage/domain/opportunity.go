package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Kind labels the arbitrage strategy that produced an opportunity.
type Kind string

const (
	// KindCrossDEX is a two-leg price-gap trade between the local venue
	// and one external venue.
	KindCrossDEX Kind = "cross_dex"

	// KindPoolToPool is a same-venue trade between two local pools
	// sharing a token. The detector only emits cross-DEX plans today;
	// the tag keeps stored records self-describing.
	KindPoolToPool Kind = "pool_to_pool"
)

// Opportunity is a priced, single-use trade plan. It is created by the
// detector from one reserve snapshot and consumed exactly once by the
// executor; amounts are expectations, not guarantees.
type Opportunity struct {
	// ID is assigned by the store, monotonically increasing.
	ID uint64

	Kind      Kind
	Direction Direction

	// Path is the token route. For cross-DEX trades it is [in, out, in]:
	// leg one trades Path[0] for Path[1], leg two trades back.
	Path []common.Address

	// Amounts holds the planned input and the simulated output of each
	// hop, aligned with Path.
	Amounts []*uint256.Int

	// NetProfit is the simulated round-trip surplus before gas.
	NetProfit *uint256.Int

	// GasEstimate is the planned gas for both legs.
	GasEstimate uint64

	// ProfitAfterGas nets the gas cost; signed, may be negative.
	ProfitAfterGas *big.Int

	// Confidence scores execution likelihood from 0 to 100.
	Confidence int

	CreatedAt time.Time
}

// InputAmount returns the planned first-leg input.
func (o *Opportunity) InputAmount() *uint256.Int {
	return o.Amounts[0]
}

// ExpectedReturn returns the simulated final output.
func (o *Opportunity) ExpectedReturn() *uint256.Int {
	return o.Amounts[len(o.Amounts)-1]
}
