// Package app contains opportunity detection, storage and execution for the
// arbitrage context.
package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ExternalQuoter is the external venue the detector compares against and the
// executor trades on.
type ExternalQuoter interface {
	// Quote prices an exact-input trade without executing it. The venue
	// may serve a short-lived cached price; detection-pass use only.
	Quote(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error)

	// QuoteFresh prices an exact-input trade against the venue's current
	// reserves, bypassing any quote cache. Execution re-validation must
	// use this variant.
	QuoteFresh(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error)

	// Reserves returns the venue's current reserves for the pair oriented
	// as (in-side, out-side).
	Reserves(ctx context.Context, tokenIn, tokenOut common.Address) (*uint256.Int, *uint256.Int, error)

	// SwapPath executes an exact-input trade for the operator and returns
	// the realized output.
	SwapPath(ctx context.Context, operator common.Address, tokenIn, tokenOut common.Address, amountIn, amountOutMin *uint256.Int) (*uint256.Int, error)
}

// ProfitSink receives realized profit after a completed round trip.
type ProfitSink interface {
	Sweep(ctx context.Context, token common.Address, amount *uint256.Int) error
}
