package domain

import (
	"testing"
	"time"

	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/internal/fixedmath"
)

func newTestPool(t *testing.T, reserveA, reserveB uint64, created time.Time) *Pool {
	t.Helper()
	p := NewPool(NewPairKey(addrLow, addrHigh), 30, created)
	p.ReserveA = uint256.NewInt(reserveA)
	p.ReserveB = uint256.NewInt(reserveB)
	p.TotalSupply = uint256.NewInt(1)
	return p
}

func TestAccumulatePrices(t *testing.T) {
	t0 := time.Unix(1_000_000, 0)
	p := newTestPool(t, 1_000_000, 2_000_000, t0)

	p.AccumulatePrices(t0.Add(10 * time.Second))

	// priceA = 2 WAD held for 10 seconds.
	wantA := new(uint256.Int).Mul(fixedmath.WAD, uint256.NewInt(20))
	if !p.CumulativePriceA.Eq(wantA) {
		t.Errorf("CumulativePriceA = %s, want %s", p.CumulativePriceA.Dec(), wantA.Dec())
	}

	// priceB = 0.5 WAD held for 10 seconds.
	wantB := new(uint256.Int).Mul(fixedmath.WAD, uint256.NewInt(5))
	if !p.CumulativePriceB.Eq(wantB) {
		t.Errorf("CumulativePriceB = %s, want %s", p.CumulativePriceB.Dec(), wantB.Dec())
	}

	if p.BlockTimestampLast != uint64(t0.Unix())+10 {
		t.Errorf("BlockTimestampLast = %d, want %d", p.BlockTimestampLast, uint64(t0.Unix())+10)
	}
}

func TestAccumulatePricesSameSecondIsNoop(t *testing.T) {
	t0 := time.Unix(1_000_000, 0)
	p := newTestPool(t, 1_000_000, 1_000_000, t0)

	p.AccumulatePrices(t0)

	if !p.CumulativePriceA.IsZero() {
		t.Errorf("CumulativePriceA = %s, want 0", p.CumulativePriceA.Dec())
	}
}

func TestAccumulatePricesSkipsEmptyPool(t *testing.T) {
	t0 := time.Unix(1_000_000, 0)
	p := NewPool(NewPairKey(addrLow, addrHigh), 30, t0)

	p.AccumulatePrices(t0.Add(time.Hour))

	if !p.CumulativePriceA.IsZero() || !p.CumulativePriceB.IsZero() {
		t.Error("accumulators should stay zero while the pool has no liquidity")
	}
	if p.BlockTimestampLast != uint64(t0.Add(time.Hour).Unix()) {
		t.Error("timestamp should still advance on an empty pool")
	}
}

func TestTWAPFromSnapshots(t *testing.T) {
	t0 := time.Unix(1_000_000, 0)
	p := newTestPool(t, 1_000_000, 2_000_000, t0)

	cum0 := new(uint256.Int).Set(p.CumulativePriceA)
	p.AccumulatePrices(t0.Add(30 * time.Second))
	cum1 := new(uint256.Int).Set(p.CumulativePriceA)

	avg, err := TWAP(cum1, cum0, uint64(t0.Unix())+30, uint64(t0.Unix()))
	if err != nil {
		t.Fatalf("TWAP error = %v", err)
	}

	want := new(uint256.Int).Mul(fixedmath.WAD, uint256.NewInt(2))
	if !avg.Eq(want) {
		t.Errorf("TWAP = %s, want %s", avg.Dec(), want.Dec())
	}
}

func TestTWAPWrappingDifference(t *testing.T) {
	// Accumulator wrapped between snapshots: cum1 < cum0 but the modular
	// difference is still the accumulated amount.
	max := new(uint256.Int).SetAllOne()
	cum0 := new(uint256.Int).Sub(max, uint256.NewInt(4))
	cum1 := uint256.NewInt(5) // wrapped past zero by 10

	avg, err := TWAP(cum1, cum0, 110, 100)
	if err != nil {
		t.Fatalf("TWAP error = %v", err)
	}
	if avg.Uint64() != 1 {
		t.Errorf("TWAP = %s, want 1", avg.Dec())
	}
}

func TestTWAPZeroInterval(t *testing.T) {
	if _, err := TWAP(uint256.NewInt(1), uint256.NewInt(0), 100, 100); err == nil {
		t.Error("TWAP over a zero interval should fail")
	}
}
