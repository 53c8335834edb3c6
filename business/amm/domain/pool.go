package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Pool holds the reserves and LP share supply for one token pair. Reserves
// are stored relative to the canonical pair ordering (TokenA is the byte-wise
// smaller address). A pool is never deleted; one drained to zero reserves
// idles until liquidity is re-added.
type Pool struct {
	TokenA common.Address
	TokenB common.Address

	ReserveA    *uint256.Int
	ReserveB    *uint256.Int
	TotalSupply *uint256.Int

	// FeeBps is fixed at creation for the pool's lifetime.
	FeeBps uint16

	// Cumulative WAD-scaled prices for the TWAP oracle. Overflow wraps by
	// design; consumers diff two snapshots.
	CumulativePriceA *uint256.Int
	CumulativePriceB *uint256.Int

	// BlockTimestampLast is the unix time of the most recent price-affecting
	// call.
	BlockTimestampLast uint64

	// Active is flipped only by an explicit admin action. An inactive pool
	// rejects swaps and liquidity changes.
	Active bool
}

// NewPool creates an empty pool for the canonical pair with the given fee.
func NewPool(key PairKey, feeBps uint16, now time.Time) *Pool {
	return &Pool{
		TokenA:             key.A,
		TokenB:             key.B,
		ReserveA:           uint256.NewInt(0),
		ReserveB:           uint256.NewInt(0),
		TotalSupply:        uint256.NewInt(0),
		FeeBps:             feeBps,
		CumulativePriceA:   uint256.NewInt(0),
		CumulativePriceB:   uint256.NewInt(0),
		BlockTimestampLast: uint64(now.Unix()),
		Active:             true,
	}
}

// Key returns the pool's pair key.
func (p *Pool) Key() PairKey {
	return PairKey{A: p.TokenA, B: p.TokenB}
}

// ReservesFor orients the reserves for a swap of tokenIn. The second return
// is the out-side reserve.
func (p *Pool) ReservesFor(tokenIn common.Address) (reserveIn, reserveOut *uint256.Int) {
	if tokenIn == p.TokenA {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// HasLiquidity reports whether both reserves are positive.
func (p *Pool) HasLiquidity() bool {
	return !p.ReserveA.IsZero() && !p.ReserveB.IsZero()
}

// Clone returns a deep copy, used for snapshots and read-only views.
func (p *Pool) Clone() *Pool {
	return &Pool{
		TokenA:             p.TokenA,
		TokenB:             p.TokenB,
		ReserveA:           new(uint256.Int).Set(p.ReserveA),
		ReserveB:           new(uint256.Int).Set(p.ReserveB),
		TotalSupply:        new(uint256.Int).Set(p.TotalSupply),
		FeeBps:             p.FeeBps,
		CumulativePriceA:   new(uint256.Int).Set(p.CumulativePriceA),
		CumulativePriceB:   new(uint256.Int).Set(p.CumulativePriceB),
		BlockTimestampLast: p.BlockTimestampLast,
		Active:             p.Active,
	}
}
