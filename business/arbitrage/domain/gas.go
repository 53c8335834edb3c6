package domain

import (
	"math/big"

	"github.com/holiman/uint256"
)

// GasModel prices the gas for a planned trade. Flat per-leg figures, not a
// chain simulation.
type GasModel struct {
	// BaseGas covers a single swap on the local venue.
	BaseGas uint64

	// CrossSurcharge is added once when a plan touches an external venue.
	CrossSurcharge uint64

	// GasPrice is the cost per gas unit in profit-token units.
	GasPrice *uint256.Int
}

// Estimate returns the gas units for a plan. Cross-venue plans pay the
// surcharge once on top of the base figure.
func (g GasModel) Estimate(crossVenue bool) uint64 {
	total := g.BaseGas
	if crossVenue {
		total += g.CrossSurcharge
	}
	return total
}

// Cost converts a gas estimate to profit-token units.
func (g GasModel) Cost(gasEstimate uint64) *big.Int {
	cost := new(big.Int).SetUint64(gasEstimate)
	return cost.Mul(cost, g.GasPrice.ToBig())
}
