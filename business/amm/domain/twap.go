package domain

import (
	"time"

	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/internal/fixedmath"
)

// AccumulatePrices advances the pool's cumulative price accumulators to now.
// It must be called before every reserve change that would move the price so
// the accumulators reflect the price that held for the preceding interval.
// Accumulator arithmetic wraps on overflow by design.
func (p *Pool) AccumulatePrices(now time.Time) {
	ts := uint64(now.Unix())
	if ts <= p.BlockTimestampLast {
		return
	}
	elapsed := ts - p.BlockTimestampLast
	p.BlockTimestampLast = ts

	if !p.HasLiquidity() {
		return
	}

	dt := uint256.NewInt(elapsed)

	// priceA = reserveB/reserveA scaled by WAD, then multiplied by elapsed
	// seconds. Mul/Add here intentionally wrap mod 2^256.
	priceA := new(uint256.Int).Mul(p.ReserveB, fixedmath.WAD)
	priceA.Div(priceA, p.ReserveA)
	p.CumulativePriceA.Add(p.CumulativePriceA, priceA.Mul(priceA, dt))

	priceB := new(uint256.Int).Mul(p.ReserveA, fixedmath.WAD)
	priceB.Div(priceB, p.ReserveB)
	p.CumulativePriceB.Add(p.CumulativePriceB, priceB.Mul(priceB, dt))
}

// TWAP computes the time-weighted average price over [t0, t1] from two
// cumulative snapshots. The subtraction wraps, so a single accumulator
// overflow between snapshots still yields the correct difference.
func TWAP(cum1, cum0 *uint256.Int, t1, t0 uint64) (*uint256.Int, error) {
	if t1 <= t0 {
		return nil, fixedmath.ErrDivisionByZero
	}
	diff := new(uint256.Int).Sub(cum1, cum0)
	return diff.Div(diff, uint256.NewInt(t1-t0)), nil
}
