package app

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/internal/apperror"
)

// CreatePoolRequest creates a new pool seeded with both initial deposits.
type CreatePoolRequest struct {
	TokenA   common.Address
	TokenB   common.Address
	AmountA  *uint256.Int
	AmountB  *uint256.Int
	Deadline time.Time
}

// Validate checks structural preconditions once at the boundary.
func (r CreatePoolRequest) Validate() error {
	if r.TokenA == r.TokenB {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("identical tokens"))
	}
	if r.AmountA == nil || r.AmountB == nil || r.AmountA.IsZero() || r.AmountB.IsZero() {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("zero initial deposit"))
	}
	return nil
}

// AddLiquidityRequest adds liquidity at the pool's current ratio. Desired
// amounts are upper bounds; minimums guard against ratio drift.
type AddLiquidityRequest struct {
	TokenA         common.Address
	TokenB         common.Address
	AmountADesired *uint256.Int
	AmountBDesired *uint256.Int
	AmountAMin     *uint256.Int
	AmountBMin     *uint256.Int
	Deadline       time.Time
}

// Validate checks structural preconditions once at the boundary.
func (r AddLiquidityRequest) Validate() error {
	if r.TokenA == r.TokenB {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("identical tokens"))
	}
	if r.AmountADesired == nil || r.AmountBDesired == nil ||
		r.AmountADesired.IsZero() || r.AmountBDesired.IsZero() {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("zero desired amount"))
	}
	if r.AmountAMin == nil || r.AmountBMin == nil {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("nil minimum amount"))
	}
	return nil
}

// RemoveLiquidityRequest burns LP shares for a proportional share of both
// reserves.
type RemoveLiquidityRequest struct {
	TokenA     common.Address
	TokenB     common.Address
	Liquidity  *uint256.Int
	AmountAMin *uint256.Int
	AmountBMin *uint256.Int
	Deadline   time.Time
}

// Validate checks structural preconditions once at the boundary.
func (r RemoveLiquidityRequest) Validate() error {
	if r.TokenA == r.TokenB {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("identical tokens"))
	}
	if r.Liquidity == nil || r.Liquidity.IsZero() {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("zero liquidity"))
	}
	if r.AmountAMin == nil || r.AmountBMin == nil {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("nil minimum amount"))
	}
	return nil
}

// SwapRequest swaps an exact input amount for at least AmountOutMin of the
// output token.
type SwapRequest struct {
	TokenIn      common.Address
	TokenOut     common.Address
	AmountIn     *uint256.Int
	AmountOutMin *uint256.Int
	Deadline     time.Time
}

// Validate checks structural preconditions once at the boundary.
func (r SwapRequest) Validate() error {
	if r.TokenIn == r.TokenOut {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("identical tokens"))
	}
	if r.AmountIn == nil || r.AmountIn.IsZero() {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("zero input amount"))
	}
	if r.AmountOutMin == nil {
		return apperror.New(apperror.CodeInvalidInput, apperror.WithContext("nil minimum output"))
	}
	return nil
}
