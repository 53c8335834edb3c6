package app

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	ammdomain "github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/logger"
)

// legDeadline bounds each leg's swap call.
const legDeadline = time.Minute

// ExecutorConfig holds the execution identities.
type ExecutorConfig struct {
	// Operator is the account that fronts capital for both legs.
	Operator common.Address
}

type executorMetrics struct {
	executionsTotal  metric.Int64Counter
	executionsFailed metric.Int64Counter
	profitSwept      metric.Int64Counter
}

// Executor consumes stored opportunities and runs the two-leg trade. Every
// execution re-derives its amounts from current reserves; nothing from the
// detection pass is trusted but the pair and direction.
type Executor struct {
	engine   *ammapp.Engine
	external ExternalQuoter
	detector *Detector
	store    *OpportunityStore
	book     ammapp.TokenBook
	sink     ProfitSink
	cfg      ExecutorConfig

	log     *logger.Logger
	tracer  trace.Tracer
	metrics *executorMetrics
}

// NewExecutor creates an executor trading as cfg.Operator.
func NewExecutor(cfg ExecutorConfig, engine *ammapp.Engine, external ExternalQuoter, detector *Detector, store *OpportunityStore, book ammapp.TokenBook, sink ProfitSink, log *logger.Logger) (*Executor, error) {
	e := &Executor{
		engine:   engine,
		external: external,
		detector: detector,
		store:    store,
		book:     book,
		sink:     sink,
		cfg:      cfg,
		log:      log,
		tracer:   otel.Tracer(meterName),
	}
	if err := e.initMetrics(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Executor) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	e.metrics = &executorMetrics{}

	e.metrics.executionsTotal, err = meter.Int64Counter(
		"arb_executions_total",
		metric.WithDescription("Total opportunity executions attempted"),
	)
	if err != nil {
		return err
	}

	e.metrics.executionsFailed, err = meter.Int64Counter(
		"arb_executions_failed_total",
		metric.WithDescription("Total failed opportunity executions"),
	)
	if err != nil {
		return err
	}

	e.metrics.profitSwept, err = meter.Int64Counter(
		"arb_profit_sweeps_total",
		metric.WithDescription("Total profitable executions swept to the treasury"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Execute runs the opportunity with the given ID and returns the realized
// profit. The record is consumed whatever the outcome; failed executions are
// never retried from stale state.
func (e *Executor) Execute(ctx context.Context, id uint64) (*uint256.Int, error) {
	ctx, span := e.tracer.Start(ctx, "executor.execute")
	defer span.End()

	opp, err := e.store.Take(id)
	if err != nil {
		return nil, err
	}

	e.metrics.executionsTotal.Add(ctx, 1)
	profit, err := e.run(ctx, opp)
	if err != nil {
		e.metrics.executionsFailed.Add(ctx, 1)
		span.RecordError(err)
		e.log.Warn(ctx, "execution failed", "id", opp.ID, "error", err)
		return nil, err
	}

	e.log.Info(ctx, "execution complete", "id", opp.ID, "profit", profit.Dec())
	return profit, nil
}

func (e *Executor) run(ctx context.Context, opp *domain.Opportunity) (*uint256.Int, error) {
	base, quote := opp.Path[0], opp.Path[1]

	amountIn, err := e.detector.Reprice(ctx, base, quote, opp.Direction)
	if err != nil {
		return nil, err
	}

	received1, err := e.buyLeg(ctx, opp.Direction, base, quote, amountIn)
	if err != nil {
		return nil, apperror.New(apperror.CodeLeg1Failed,
			apperror.WithContext("first leg"), apperror.WithCause(err))
	}
	if received1.IsZero() {
		return nil, apperror.New(apperror.CodeLeg1Failed, apperror.WithContext("first leg produced no output"))
	}

	received2, err := e.sellLeg(ctx, opp.Direction, base, quote, received1)
	if err != nil {
		// The operator now holds the intermediate token with no way
		// back; surface it distinctly so tooling can sweep the balance.
		return nil, apperror.New(apperror.CodeLeg2Stranded,
			apperror.WithContextf("stranded %s of token %s", received1.Dec(), quote.Hex()),
			apperror.WithCause(err))
	}

	profit := uint256.NewInt(0)
	if received2.Gt(amountIn) {
		profit.Sub(received2, amountIn)
	}
	if !profit.IsZero() {
		if err := e.sink.Sweep(ctx, base, profit); err != nil {
			return nil, err
		}
		e.metrics.profitSwept.Add(ctx, 1)
	}
	return profit, nil
}

// buyLeg trades base for quote on the cheap venue.
func (e *Executor) buyLeg(ctx context.Context, direction domain.Direction, base, quote common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if direction == domain.BuySelfSellExternal {
		return e.swapLocal(ctx, base, quote, amountIn)
	}
	return e.external.SwapPath(ctx, e.cfg.Operator, base, quote, amountIn, uint256.NewInt(0))
}

// sellLeg trades the first leg's output back to base on the other venue.
func (e *Executor) sellLeg(ctx context.Context, direction domain.Direction, base, quote common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if direction == domain.BuySelfSellExternal {
		return e.external.SwapPath(ctx, e.cfg.Operator, quote, base, amountIn, uint256.NewInt(0))
	}
	return e.swapLocal(ctx, quote, base, amountIn)
}

// swapLocal approves the vault pull and swaps on the local venue as the
// operator.
func (e *Executor) swapLocal(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *uint256.Int) (*uint256.Int, error) {
	if err := e.book.Approve(tokenIn, e.cfg.Operator, e.engine.Vault(), amountIn); err != nil {
		return nil, err
	}

	call := ammdomain.NewCallContext(e.cfg.Operator)
	return e.engine.Swap(ctx, call, ammapp.SwapRequest{
		TokenIn:      tokenIn,
		TokenOut:     tokenOut,
		AmountIn:     amountIn,
		AmountOutMin: uint256.NewInt(0),
		Deadline:     call.Now.Add(legDeadline),
	})
}
