package app

import (
	"context"
	"math/big"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/internal/logger"
	"github.com/dexforge/dexcore/internal/ratelimit"
)

// RunnerConfig holds the scan loop parameters.
type RunnerConfig struct {
	// ScanInterval is the pause between scans.
	ScanInterval time.Duration

	// ScansPerMinute caps the scan rate independently of the interval.
	ScansPerMinute int

	// MaxExecutionsPerScan bounds how many opportunities one scan may
	// execute.
	MaxExecutionsPerScan int

	// MinProfitAfterGas is the post-gas floor an opportunity must clear
	// to be executed.
	MinProfitAfterGas *big.Int
}

// Runner is the autonomous scan loop: detect, execute the best few, sleep,
// repeat. It holds no state beyond the active flag; each scan is independent
// and a failed scan never poisons the next one.
type Runner struct {
	detector *Detector
	executor *Executor
	cfg      RunnerConfig

	limiter *ratelimit.Limiter
	log     *logger.Logger

	active atomic.Bool
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates a stopped runner.
func NewRunner(cfg RunnerConfig, detector *Detector, executor *Executor, log *logger.Logger) *Runner {
	return &Runner{
		detector: detector,
		executor: executor,
		cfg:      cfg,
		limiter:  ratelimit.New(cfg.ScansPerMinute),
		log:      log,
	}
}

// Start launches the loop. Starting a running runner is a no-op.
func (r *Runner) Start(ctx context.Context) {
	if !r.active.CompareAndSwap(false, true) {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	r.wg.Add(1)
	go r.loop(loopCtx)
	r.log.Info(ctx, "arbitrage loop started", "interval", r.cfg.ScanInterval.String())
}

// Stop halts the loop and waits for the in-flight scan to finish.
func (r *Runner) Stop(ctx context.Context) {
	if !r.active.CompareAndSwap(true, false) {
		return
	}
	r.cancel()
	r.wg.Wait()
	r.log.Info(ctx, "arbitrage loop stopped")
}

// Active reports whether the loop is running.
func (r *Runner) Active() bool {
	return r.active.Load()
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := r.limiter.Wait(ctx); err != nil {
			return
		}
		r.scan(ctx)
	}
}

// scan runs one detection pass and executes the best opportunities. Errors
// are logged and dropped; the next scan starts from clean state.
func (r *Runner) scan(ctx context.Context) {
	scanID := uuid.NewString()

	found, err := r.detector.Detect(ctx)
	if err != nil {
		r.log.Warn(ctx, "scan failed", "scan_id", scanID, "error", err)
		return
	}
	if len(found) == 0 {
		return
	}

	executable := make([]*domain.Opportunity, 0, len(found))
	for _, o := range found {
		if o.ProfitAfterGas.Cmp(r.cfg.MinProfitAfterGas) > 0 {
			executable = append(executable, o)
		}
	}
	sort.Slice(executable, func(i, j int) bool {
		return executable[i].ProfitAfterGas.Cmp(executable[j].ProfitAfterGas) > 0
	})

	executed := 0
	for _, o := range executable {
		if executed >= r.cfg.MaxExecutionsPerScan {
			break
		}
		executed++

		profit, err := r.executor.Execute(ctx, o.ID)
		if err != nil {
			r.log.Warn(ctx, "opportunity execution failed",
				"scan_id", scanID, "id", o.ID, "error", err)
			continue
		}
		r.log.Info(ctx, "opportunity executed",
			"scan_id", scanID, "id", o.ID, "profit", profit.Dec())
	}
}
