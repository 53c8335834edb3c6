package app

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/fixedmath"
)

// AddLiquidity deposits both tokens at the pool's current ratio and mints LP
// shares. One desired amount is scaled down to preserve the ratio; both
// accepted amounts must clear their minimums.
func (e *Engine) AddLiquidity(ctx context.Context, call domain.CallContext, req AddLiquidityRequest) (*uint256.Int, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if call.Now.After(req.Deadline) {
		return nil, apperror.New(apperror.CodeDeadlineExpired)
	}

	key := domain.NewPairKey(req.TokenA, req.TokenB)
	desiredA, desiredB := orientAmounts(key, req.TokenA, req.AmountADesired, req.AmountBDesired)
	minA, minB := orientAmounts(key, req.TokenA, req.AmountAMin, req.AmountBMin)

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.lookupPool(key)
	if err != nil {
		return nil, err
	}

	var amountA, amountB, shares *uint256.Int
	if pool.TotalSupply.IsZero() {
		// A drained pool re-initializes like a fresh one: both desired
		// amounts are accepted and shares follow the square-root rule.
		amountA, amountB = desiredA, desiredB
		product, err := fixedmath.Mul(amountA, amountB)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "reseed share supply")
		}
		shares = fixedmath.Sqrt(product)
	} else {
		amountA, amountB, err = acceptedDeposit(desiredA, desiredB, pool.ReserveA, pool.ReserveB)
		if err != nil {
			return nil, err
		}

		sharesA, err := fixedmath.MulDiv(amountA, pool.TotalSupply, pool.ReserveA)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "share mint")
		}
		sharesB, err := fixedmath.MulDiv(amountB, pool.TotalSupply, pool.ReserveB)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "share mint")
		}
		shares = fixedmath.Min(sharesA, sharesB)
	}

	if amountA.Lt(minA) || amountB.Lt(minB) {
		return nil, apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext("accepted deposit below minimum"))
	}
	if shares.IsZero() {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity,
			apperror.WithContext("deposit too small to mint shares"))
	}

	if err := e.book.TransferFrom(key.A, call.Caller, e.cfg.Vault, e.cfg.Vault, amountA); err != nil {
		return nil, err
	}
	if err := e.book.TransferFrom(key.B, call.Caller, e.cfg.Vault, e.cfg.Vault, amountB); err != nil {
		_ = e.book.Transfer(key.A, e.cfg.Vault, call.Caller, amountA)
		return nil, err
	}

	// The accumulator must reflect the pre-deposit price for the elapsed
	// interval, so bump it before touching reserves.
	pool.AccumulatePrices(call.Now)
	pool.ReserveA.Add(pool.ReserveA, amountA)
	pool.ReserveB.Add(pool.ReserveB, amountB)
	pool.TotalSupply.Add(pool.TotalSupply, shares)
	e.mintShares(key, call, shares)

	e.metrics.liquidityEvents.Add(ctx, 1)
	e.log.Debug(ctx, "liquidity added",
		"pair", key.String(),
		"amount_a", amountA.Dec(),
		"amount_b", amountB.Dec(),
		"shares", shares.Dec(),
	)

	return new(uint256.Int).Set(shares), nil
}

// RemoveLiquidity burns shares and returns the proportional amounts of both
// reserves, oriented to the caller's token order.
func (e *Engine) RemoveLiquidity(ctx context.Context, call domain.CallContext, req RemoveLiquidityRequest) (*uint256.Int, *uint256.Int, error) {
	if err := req.Validate(); err != nil {
		return nil, nil, err
	}
	if call.Now.After(req.Deadline) {
		return nil, nil, apperror.New(apperror.CodeDeadlineExpired)
	}

	key := domain.NewPairKey(req.TokenA, req.TokenB)
	minA, minB := orientAmounts(key, req.TokenA, req.AmountAMin, req.AmountBMin)

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, err := e.lookupPool(key)
	if err != nil {
		return nil, nil, err
	}

	balance := e.shareBalance(key, call)
	if req.Liquidity.Gt(balance) {
		return nil, nil, apperror.New(apperror.CodeInsufficientShares,
			apperror.WithContextf("have %s, want %s", balance.Dec(), req.Liquidity.Dec()))
	}

	amountA, err := fixedmath.MulDiv(req.Liquidity, pool.ReserveA, pool.TotalSupply)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeMathOverflow, "redemption amount")
	}
	amountB, err := fixedmath.MulDiv(req.Liquidity, pool.ReserveB, pool.TotalSupply)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeMathOverflow, "redemption amount")
	}

	if amountA.Lt(minA) || amountB.Lt(minB) {
		return nil, nil, apperror.New(apperror.CodeSlippageExceeded,
			apperror.WithContext("redemption below minimum"))
	}

	// Pay out both legs before any ledger mutation, so a payout failure
	// leaves reserves and shares exactly as they were.
	if err := e.book.Transfer(key.A, e.cfg.Vault, call.Caller, amountA); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeInternalError, "vault payout")
	}
	if err := e.book.Transfer(key.B, e.cfg.Vault, call.Caller, amountB); err != nil {
		_ = e.book.Transfer(key.A, call.Caller, e.cfg.Vault, amountA)
		return nil, nil, apperror.Wrap(err, apperror.CodeInternalError, "vault payout")
	}

	pool.AccumulatePrices(call.Now)
	pool.ReserveA.Sub(pool.ReserveA, amountA)
	pool.ReserveB.Sub(pool.ReserveB, amountB)
	pool.TotalSupply.Sub(pool.TotalSupply, req.Liquidity)
	e.burnShares(key, call, req.Liquidity)

	e.metrics.liquidityEvents.Add(ctx, 1)
	e.log.Debug(ctx, "liquidity removed",
		"pair", key.String(),
		"amount_a", amountA.Dec(),
		"amount_b", amountB.Dec(),
		"shares", req.Liquidity.Dec(),
	)

	// Orient the returned amounts to the caller's passed order.
	if req.TokenA == key.A {
		return amountA, amountB, nil
	}
	return amountB, amountA, nil
}

// RemoveLiquidityNative is RemoveLiquidity with the wrapped-native leg
// redeemed for the native asset afterwards. A thin adapter over the same
// invariant, not a separate algorithm.
func (e *Engine) RemoveLiquidityNative(ctx context.Context, call domain.CallContext, req RemoveLiquidityRequest) (*uint256.Int, *uint256.Int, error) {
	if req.TokenA != e.cfg.WrappedNative && req.TokenB != e.cfg.WrappedNative {
		return nil, nil, apperror.New(apperror.CodeInvalidInput,
			apperror.WithContext("pair does not include the wrapped-native token"))
	}

	amountA, amountB, err := e.RemoveLiquidity(ctx, call, req)
	if err != nil {
		return nil, nil, err
	}

	nativeAmount := amountA
	if req.TokenB == e.cfg.WrappedNative {
		nativeAmount = amountB
	}
	// The caller holds exactly nativeAmount of the wrapped token from the
	// payout above, so the unwrap can only fail on a book invariant break.
	if err := e.book.Unwrap(e.cfg.WrappedNative, call.Caller, nativeAmount); err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeInternalError, "native unwrap")
	}

	return amountA, amountB, nil
}

// acceptedDeposit scales one desired amount down so the deposit matches the
// current reserve ratio.
func acceptedDeposit(desiredA, desiredB, reserveA, reserveB *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	optimalB, err := fixedmath.MulDiv(desiredA, reserveB, reserveA)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeMathOverflow, "deposit ratio")
	}
	if !optimalB.Gt(desiredB) {
		return new(uint256.Int).Set(desiredA), optimalB, nil
	}

	optimalA, err := fixedmath.MulDiv(desiredB, reserveA, reserveB)
	if err != nil {
		return nil, nil, apperror.Wrap(err, apperror.CodeMathOverflow, "deposit ratio")
	}
	return optimalA, new(uint256.Int).Set(desiredB), nil
}

// mintShares credits shares to the caller's position. Callers hold e.mu.
func (e *Engine) mintShares(key domain.PairKey, call domain.CallContext, shares *uint256.Int) {
	holders, ok := e.positions[key]
	if !ok {
		holders = make(map[common.Address]*uint256.Int)
		e.positions[key] = holders
	}
	if bal, ok := holders[call.Caller]; ok {
		bal.Add(bal, shares)
	} else {
		holders[call.Caller] = new(uint256.Int).Set(shares)
	}
}

// burnShares debits shares from the caller's position. Callers hold e.mu and
// have verified the balance.
func (e *Engine) burnShares(key domain.PairKey, call domain.CallContext, shares *uint256.Int) {
	holders := e.positions[key]
	holders[call.Caller].Sub(holders[call.Caller], shares)
}

// shareBalance returns the caller's share balance. Callers hold e.mu.
func (e *Engine) shareBalance(key domain.PairKey, call domain.CallContext) *uint256.Int {
	if holders, ok := e.positions[key]; ok {
		if bal, ok := holders[call.Caller]; ok {
			return bal
		}
	}
	return uint256.NewInt(0)
}
