package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/fixedmath"
)

// AmountOut prices an exact-input trade against the constant-product curve.
// The fee is taken from the input: out = (in * (10000 - fee) * reserveOut) /
// (reserveIn * 10000 + in * (10000 - fee)). Pure, no state.
func AmountOut(amountIn, reserveIn, reserveOut *uint256.Int, feeBps uint16) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContext("zero input amount"))
	}
	if reserveIn.IsZero() || reserveOut.IsZero() {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity, apperror.WithContext("empty reserves"))
	}
	if uint64(feeBps) >= fixedmath.BpsScale {
		return nil, apperror.New(apperror.CodeInvalidInput, apperror.WithContextf("fee %d bps", feeBps))
	}

	feeFactor := uint256.NewInt(fixedmath.BpsScale - uint64(feeBps))
	inWithFee, err := fixedmath.Mul(amountIn, feeFactor)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "fee-adjusted input")
	}

	scaledReserveIn, err := fixedmath.Mul(reserveIn, fixedmath.BpsDivisor)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "scaled input reserve")
	}
	denominator, err := fixedmath.Add(scaledReserveIn, inWithFee)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "quote denominator")
	}

	out, err := fixedmath.MulDiv(reserveOut, inWithFee, denominator)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "quote")
	}
	return out, nil
}

// Quote prices a swap against current reserves without touching state.
func (e *Engine) Quote(tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	key := domain.NewPairKey(tokenIn, tokenOut)

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.lookupPool(key)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut := pool.ReservesFor(tokenIn)
	return AmountOut(amountIn, reserveIn, reserveOut, pool.FeeBps)
}

// Swap executes an exact-input trade. The output must clear the caller's
// minimum before any balance moves, and the reserves are updated as one unit
// so the product invariant holds across the call.
func (e *Engine) Swap(ctx context.Context, call domain.CallContext, req SwapRequest) (*uint256.Int, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if call.Now.After(req.Deadline) {
		return nil, apperror.New(apperror.CodeDeadlineExpired)
	}

	key := domain.NewPairKey(req.TokenIn, req.TokenOut)

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.lookupPool(key)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut := pool.ReservesFor(req.TokenIn)
	amountOut, err := AmountOut(req.AmountIn, reserveIn, reserveOut, pool.FeeBps)
	if err != nil {
		return nil, err
	}
	if amountOut.Lt(req.AmountOutMin) {
		return nil, apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContextf("out %s below minimum %s", amountOut.Dec(), req.AmountOutMin.Dec()))
	}
	if amountOut.IsZero() {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext("input too small for any output"))
	}

	if err := e.book.TransferFrom(req.TokenIn, call.Caller, e.cfg.Vault, e.cfg.Vault, req.AmountIn); err != nil {
		return nil, err
	}
	if err := e.book.Transfer(req.TokenOut, e.cfg.Vault, call.Caller, amountOut); err != nil {
		_ = e.book.Transfer(req.TokenIn, e.cfg.Vault, call.Caller, req.AmountIn)
		return nil, apperror.Wrap(err, apperror.CodeInternalError, "vault payout")
	}

	// Record the pre-trade price for the elapsed interval, then move both
	// reserves together. The full input is credited; the fee stays in the
	// pool and accrues to LP shares.
	pool.AccumulatePrices(call.Now)
	reserveIn.Add(reserveIn, req.AmountIn)
	reserveOut.Sub(reserveOut, amountOut)

	e.metrics.swapsTotal.Add(ctx, 1)
	e.log.Debug(ctx, "swap executed",
		"pair", key.String(),
		"token_in", req.TokenIn.Hex(),
		"amount_in", req.AmountIn.Dec(),
		"amount_out", amountOut.Dec(),
	)

	return amountOut, nil
}
