package app

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/fixedmath"
	"github.com/dexforge/dexcore/internal/logger"
)

const meterName = "amm"

// EngineConfig holds static engine parameters.
type EngineConfig struct {
	// Vault is the address that custodies pool reserves in the token book
	// and acts as the allowance spender for pull-payments.
	Vault common.Address

	// WrappedNative is the wrapped form of the chain's native asset,
	// required by RemoveLiquidityNative.
	WrappedNative common.Address

	// DefaultFeeBps is applied to pools created without an explicit fee.
	DefaultFeeBps uint16
}

// engineMetrics holds OTEL metric instruments.
type engineMetrics struct {
	poolsCreated    metric.Int64Counter
	swapsTotal      metric.Int64Counter
	liquidityEvents metric.Int64Counter
}

// Engine owns the pool ledger and LP positions. All public operations are
// serialized under one mutex: the reserve/share pair is always updated
// together within a single call, mirroring the transactional call model of
// the target execution environment.
type Engine struct {
	mu        sync.Mutex
	pools     map[domain.PairKey]*domain.Pool
	positions map[domain.PairKey]map[common.Address]*uint256.Int

	book TokenBook
	cfg  EngineConfig

	log     *logger.Logger
	metrics *engineMetrics
}

// NewEngine creates a pool engine settling against book.
func NewEngine(cfg EngineConfig, book TokenBook, log *logger.Logger) (*Engine, error) {
	e := &Engine{
		pools:     make(map[domain.PairKey]*domain.Pool),
		positions: make(map[domain.PairKey]map[common.Address]*uint256.Int),
		book:      book,
		cfg:       cfg,
		log:       log,
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &engineMetrics{}

	e.metrics.poolsCreated, err = meter.Int64Counter(
		"amm_pools_created_total",
		metric.WithDescription("Total pools created"),
		metric.WithUnit("{pool}"),
	)
	if err != nil {
		return err
	}

	e.metrics.swapsTotal, err = meter.Int64Counter(
		"amm_swaps_total",
		metric.WithDescription("Total executed swaps"),
		metric.WithUnit("{swap}"),
	)
	if err != nil {
		return err
	}

	e.metrics.liquidityEvents, err = meter.Int64Counter(
		"amm_liquidity_events_total",
		metric.WithDescription("Total liquidity adds and removes"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Vault returns the reserve custody address.
func (e *Engine) Vault() common.Address {
	return e.cfg.Vault
}

// CreatePool creates a pool for the unordered pair, pulls both deposits and
// mints initial shares to the caller using the square-root rule.
func (e *Engine) CreatePool(ctx context.Context, call domain.CallContext, req CreatePoolRequest) (*uint256.Int, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if call.Now.After(req.Deadline) {
		return nil, apperror.New(apperror.CodeDeadlineExpired)
	}

	key := domain.NewPairKey(req.TokenA, req.TokenB)
	amountA, amountB := orientAmounts(key, req.TokenA, req.AmountA, req.AmountB)

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.pools[key]; exists {
		return nil, apperror.New(apperror.CodePoolExists, apperror.WithContext(key.String()))
	}

	product, err := fixedmath.Mul(amountA, amountB)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeMathOverflow, "initial share supply")
	}
	shares := fixedmath.Sqrt(product)
	if shares.IsZero() {
		return nil, apperror.New(apperror.CodeInsufficientLiquidity, apperror.WithContext("deposits too small for initial shares"))
	}

	// Pull both deposits before any ledger mutation. Token-level failures
	// surface as the book's own errors.
	if err := e.book.TransferFrom(key.A, call.Caller, e.cfg.Vault, e.cfg.Vault, amountA); err != nil {
		return nil, err
	}
	if err := e.book.TransferFrom(key.B, call.Caller, e.cfg.Vault, e.cfg.Vault, amountB); err != nil {
		// Return the first leg so the call leaves no partial deposit.
		_ = e.book.Transfer(key.A, e.cfg.Vault, call.Caller, amountA)
		return nil, err
	}

	pool := domain.NewPool(key, e.cfg.DefaultFeeBps, call.Now)
	pool.ReserveA = new(uint256.Int).Set(amountA)
	pool.ReserveB = new(uint256.Int).Set(amountB)
	pool.TotalSupply = new(uint256.Int).Set(shares)

	e.pools[key] = pool
	e.positions[key] = map[common.Address]*uint256.Int{
		call.Caller: new(uint256.Int).Set(shares),
	}

	e.metrics.poolsCreated.Add(ctx, 1)
	e.log.Info(ctx, "pool created",
		"pair", key.String(),
		"reserve_a", amountA.Dec(),
		"reserve_b", amountB.Dec(),
		"shares", shares.Dec(),
		"fee_bps", pool.FeeBps,
	)

	return shares, nil
}

// GetPool returns a deep copy of the pool for the unordered pair, or nil if
// absent. Read-only, no side effects.
func (e *Engine) GetPool(tokenA, tokenB common.Address) *domain.Pool {
	key := domain.NewPairKey(tokenA, tokenB)

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, ok := e.pools[key]
	if !ok {
		return nil
	}
	return pool.Clone()
}

// Pools returns deep copies of all pools.
func (e *Engine) Pools() []*domain.Pool {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*domain.Pool, 0, len(e.pools))
	for _, p := range e.pools {
		out = append(out, p.Clone())
	}
	return out
}

// SharesOf returns the caller's LP share balance for the pair.
func (e *Engine) SharesOf(tokenA, tokenB, owner common.Address) *uint256.Int {
	key := domain.NewPairKey(tokenA, tokenB)

	e.mu.Lock()
	defer e.mu.Unlock()

	if holders, ok := e.positions[key]; ok {
		if bal, ok := holders[owner]; ok {
			return new(uint256.Int).Set(bal)
		}
	}
	return uint256.NewInt(0)
}

// SetPoolActive flips a pool's active flag. This is the only way a pool
// becomes inactive; normal trading never does.
func (e *Engine) SetPoolActive(ctx context.Context, tokenA, tokenB common.Address, active bool) error {
	key := domain.NewPairKey(tokenA, tokenB)

	e.mu.Lock()
	defer e.mu.Unlock()

	pool, ok := e.pools[key]
	if !ok {
		return apperror.New(apperror.CodePoolNotFound, apperror.WithContext(key.String()))
	}
	pool.Active = active

	e.log.Info(ctx, "pool active flag changed", "pair", key.String(), "active", active)
	return nil
}

// RestoreState replaces the ledger with snapshot state, used at startup.
func (e *Engine) RestoreState(pools []*domain.Pool, positions map[domain.PairKey]map[common.Address]*uint256.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pools = make(map[domain.PairKey]*domain.Pool, len(pools))
	for _, p := range pools {
		e.pools[p.Key()] = p.Clone()
	}

	e.positions = make(map[domain.PairKey]map[common.Address]*uint256.Int, len(positions))
	for key, holders := range positions {
		dst := make(map[common.Address]*uint256.Int, len(holders))
		for owner, bal := range holders {
			dst[owner] = new(uint256.Int).Set(bal)
		}
		e.positions[key] = dst
	}
}

// SnapshotState exports deep copies of pools and positions for persistence.
func (e *Engine) SnapshotState() ([]*domain.Pool, map[domain.PairKey]map[common.Address]*uint256.Int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pools := make([]*domain.Pool, 0, len(e.pools))
	for _, p := range e.pools {
		pools = append(pools, p.Clone())
	}

	positions := make(map[domain.PairKey]map[common.Address]*uint256.Int, len(e.positions))
	for key, holders := range e.positions {
		dst := make(map[common.Address]*uint256.Int, len(holders))
		for owner, bal := range holders {
			dst[owner] = new(uint256.Int).Set(bal)
		}
		positions[key] = dst
	}

	return pools, positions
}

// lookupPool returns the live pool for a pair, enforcing existence and the
// active flag. Callers must hold e.mu.
func (e *Engine) lookupPool(key domain.PairKey) (*domain.Pool, error) {
	pool, ok := e.pools[key]
	if !ok {
		return nil, apperror.New(apperror.CodePoolNotFound, apperror.WithContext(key.String()))
	}
	if !pool.Active {
		return nil, apperror.New(apperror.CodePoolInactive, apperror.WithContext(key.String()))
	}
	return pool, nil
}

// orientAmounts maps caller-ordered amounts onto the canonical pair order.
func orientAmounts(key domain.PairKey, callerTokenA common.Address, amountA, amountB *uint256.Int) (*uint256.Int, *uint256.Int) {
	if callerTokenA == key.A {
		return amountA, amountB
	}
	return amountB, amountA
}
