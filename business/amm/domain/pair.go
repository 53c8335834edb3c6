// Package domain contains the core domain types for the AMM context.
package domain

import (
	"bytes"

	"github.com/ethereum/go-ethereum/common"
)

// PairKey identifies a pool by its unordered token pair. The byte-wise
// smaller address is always A so lookups are symmetric regardless of the
// order the caller passes tokens in.
type PairKey struct {
	A common.Address
	B common.Address
}

// NewPairKey canonicalizes two token addresses into a PairKey.
func NewPairKey(token0, token1 common.Address) PairKey {
	if bytes.Compare(token0.Bytes(), token1.Bytes()) <= 0 {
		return PairKey{A: token0, B: token1}
	}
	return PairKey{A: token1, B: token0}
}

// Contains reports whether token is one of the pair's sides.
func (k PairKey) Contains(token common.Address) bool {
	return token == k.A || token == k.B
}

// Other returns the counterpart of token within the pair.
func (k PairKey) Other(token common.Address) common.Address {
	if token == k.A {
		return k.B
	}
	return k.A
}

// String returns "0xA.../0xB..." for logs and API paths.
func (k PairKey) String() string {
	return k.A.Hex() + "/" + k.B.Hex()
}
