package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addrLow  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	addrHigh = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func TestNewPairKeyCanonicalOrder(t *testing.T) {
	forward := NewPairKey(addrLow, addrHigh)
	reversed := NewPairKey(addrHigh, addrLow)

	if forward != reversed {
		t.Errorf("pair keys differ by argument order: %v vs %v", forward, reversed)
	}
	if forward.A != addrLow {
		t.Errorf("key.A = %s, want byte-wise smaller address %s", forward.A.Hex(), addrLow.Hex())
	}
	if forward.B != addrHigh {
		t.Errorf("key.B = %s, want %s", forward.B.Hex(), addrHigh.Hex())
	}
}

func TestPairKeyContainsAndOther(t *testing.T) {
	key := NewPairKey(addrLow, addrHigh)
	stranger := common.HexToAddress("0x3000000000000000000000000000000000000003")

	if !key.Contains(addrLow) || !key.Contains(addrHigh) {
		t.Error("key should contain both member tokens")
	}
	if key.Contains(stranger) {
		t.Error("key should not contain an unrelated token")
	}
	if got := key.Other(addrLow); got != addrHigh {
		t.Errorf("Other(A) = %s, want %s", got.Hex(), addrHigh.Hex())
	}
	if got := key.Other(addrHigh); got != addrLow {
		t.Errorf("Other(B) = %s, want %s", got.Hex(), addrLow.Hex())
	}
}
