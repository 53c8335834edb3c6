package app

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	ammdomain "github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/business/amm/infra/tokenledger"
	"github.com/dexforge/dexcore/business/arbitrage/infra/treasury"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/logger"
)

type executorFixture struct {
	ledger   *tokenledger.Ledger
	engine   *ammapp.Engine
	venue    *fakeVenue
	detector *Detector
	store    *OpportunityStore
	executor *Executor
}

// newExecutorFixture wires a local pool paying double the external price, so
// every scan finds one buy-local opportunity.
func newExecutorFixture(t *testing.T) *executorFixture {
	t.Helper()

	ledger := tokenledger.New()
	engine := newSelfEngine(t, ledger, 1_000_000, 2_000_000)
	venue := newFakeVenue(ledger, 1_000_000, 1_000_000)

	log := logger.New(io.Discard, slog.LevelError, "test")
	store := NewOpportunityStore()
	detector, err := NewDetector(testDetectorConfig(20), engine, venue, store, log)
	require.NoError(t, err)

	sink := treasury.New(ledger, operator, treasAddr, log)
	executor, err := NewExecutor(ExecutorConfig{Operator: operator},
		engine, venue, detector, store, ledger, sink, log)
	require.NoError(t, err)

	// Operator fronts the first-leg capital.
	ledger.Mint(baseToken, operator, uint256.NewInt(50_000))

	return &executorFixture{
		ledger:   ledger,
		engine:   engine,
		venue:    venue,
		detector: detector,
		store:    store,
		executor: executor,
	}
}

func (f *executorFixture) detectOne(t *testing.T) uint64 {
	t.Helper()

	found, err := f.detector.Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, found, 1)
	return found[0].ID
}

func TestExecuteRoundTripSweepsProfit(t *testing.T) {
	f := newExecutorFixture(t)
	id := f.detectOne(t)

	profit, err := f.executor.Execute(context.Background(), id)
	require.NoError(t, err)
	require.True(t, profit.Sign() > 0)

	// The principal stays with the operator, the surplus with the
	// treasury.
	require.Equal(t, uint64(50_000), f.ledger.BalanceOf(baseToken, operator).Uint64())
	require.Equal(t, profit.Uint64(), f.ledger.BalanceOf(baseToken, treasAddr).Uint64())

	// The record was consumed.
	require.Zero(t, f.store.Len())
	_, err = f.executor.Execute(context.Background(), id)
	require.True(t, apperror.IsCode(err, apperror.CodeOpportunityNotFound))
}

func TestExecuteStaleWhenGapReverses(t *testing.T) {
	f := newExecutorFixture(t)
	id := f.detectOne(t)

	// A large trade lands between detection and execution and flips the
	// local price past the external one.
	trader := operator
	f.ledger.Mint(baseToken, trader, uint256.NewInt(1_000_000))
	require.NoError(t, f.ledger.Approve(baseToken, trader, selfVault, uint256.NewInt(1_000_000)))

	call := ammdomain.NewCallContext(trader)
	_, err := f.engine.Swap(context.Background(), call, ammapp.SwapRequest{
		TokenIn:      baseToken,
		TokenOut:     quoteToken,
		AmountIn:     uint256.NewInt(1_000_000),
		AmountOutMin: uint256.NewInt(0),
		Deadline:     call.Now.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = f.executor.Execute(context.Background(), id)
	require.True(t, apperror.IsCode(err, apperror.CodeOpportunityStale), "got %v", err)

	// Nothing moved to the treasury.
	require.Zero(t, f.ledger.BalanceOf(baseToken, treasAddr).Uint64())
	require.Zero(t, f.store.Len())
}

func TestExecuteStaleWhenGapNarrows(t *testing.T) {
	f := newExecutorFixture(t)
	id := f.detectOne(t)

	// A trade lands between detection and execution and narrows the local
	// premium to ~2%. The probe-size gap still clears the 100 bps floor in
	// the same direction, but at reserve/20 size the depth impact plus both
	// fees exceed the gap: the round trip would realize a loss.
	trader := operator
	f.ledger.Mint(baseToken, trader, uint256.NewInt(400_000))
	require.NoError(t, f.ledger.Approve(baseToken, trader, selfVault, uint256.NewInt(400_000)))

	call := ammdomain.NewCallContext(trader)
	_, err := f.engine.Swap(context.Background(), call, ammapp.SwapRequest{
		TokenIn:      baseToken,
		TokenOut:     quoteToken,
		AmountIn:     uint256.NewInt(400_000),
		AmountOutMin: uint256.NewInt(0),
		Deadline:     call.Now.Add(time.Minute),
	})
	require.NoError(t, err)

	_, err = f.executor.Execute(context.Background(), id)
	require.True(t, apperror.IsCode(err, apperror.CodeOpportunityStale), "got %v", err)

	// No leg ran: the operator's principal is intact and nothing reached
	// the treasury.
	require.Equal(t, uint64(50_000), f.ledger.BalanceOf(baseToken, operator).Uint64())
	require.Zero(t, f.ledger.BalanceOf(baseToken, treasAddr).Uint64())
	require.Zero(t, f.store.Len())
}

func TestExecuteLeg2StrandsIntermediateToken(t *testing.T) {
	f := newExecutorFixture(t)
	id := f.detectOne(t)

	f.venue.failSwap = true

	_, err := f.executor.Execute(context.Background(), id)
	require.True(t, apperror.IsCode(err, apperror.CodeLeg2Stranded), "got %v", err)

	// The first leg committed: the operator holds the intermediate token
	// and none of the principal.
	require.Zero(t, f.ledger.BalanceOf(baseToken, operator).Uint64())
	require.True(t, f.ledger.BalanceOf(quoteToken, operator).Sign() > 0)

	// Stranded or not, the record is gone.
	require.Zero(t, f.store.Len())
}

func TestExecuteUnknownOpportunity(t *testing.T) {
	f := newExecutorFixture(t)

	_, err := f.executor.Execute(context.Background(), 999)
	require.True(t, apperror.IsCode(err, apperror.CodeOpportunityNotFound))
}

func TestRunnerStartStop(t *testing.T) {
	f := newExecutorFixture(t)
	log := logger.New(io.Discard, slog.LevelError, "test")

	runner := NewRunner(RunnerConfig{
		ScanInterval:         10 * time.Millisecond,
		ScansPerMinute:       600,
		MaxExecutionsPerScan: 2,
		MinProfitAfterGas:    big.NewInt(0),
	}, f.detector, f.executor, log)

	ctx := context.Background()
	runner.Start(ctx)
	require.True(t, runner.Active())

	// Starting twice is a no-op.
	runner.Start(ctx)

	runner.Stop(ctx)
	require.False(t, runner.Active())

	// Stopping twice is a no-op as well.
	runner.Stop(ctx)
}
