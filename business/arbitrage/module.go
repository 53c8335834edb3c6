// Package arbitrage is the cross-venue trading bounded context: detection,
// scoring and two-leg execution of price gaps.
package arbitrage

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	ammapp "github.com/dexforge/dexcore/business/amm/app"
	ammdi "github.com/dexforge/dexcore/business/amm/di"
	ammdomain "github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/business/amm/infra/tokenledger"
	"github.com/dexforge/dexcore/business/arbitrage/app"
	arbdi "github.com/dexforge/dexcore/business/arbitrage/di"
	"github.com/dexforge/dexcore/business/arbitrage/domain"
	"github.com/dexforge/dexcore/business/arbitrage/infra/localvenue"
	"github.com/dexforge/dexcore/business/arbitrage/infra/treasury"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/config"
	"github.com/dexforge/dexcore/internal/di"
	"github.com/dexforge/dexcore/internal/logger"
	"github.com/dexforge/dexcore/internal/monolith"
)

// Module wires the arbitrage context into the application. It depends on the
// AMM context's engine and token book, so it must start after it.
type Module struct {
	store  *app.OpportunityStore
	runner *app.Runner
	venue  *localvenue.Venue
}

// RegisterServices builds the context's config-free services.
func (m *Module) RegisterServices(c di.Container) error {
	m.store = app.NewOpportunityStore()
	di.RegisterToken(c, arbdi.StoreToken, m.store)
	return nil
}

// Startup builds the detection and execution pipeline against the AMM
// context's services.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	engine := di.GetToken(mono.Services(), ammdi.EngineToken)
	ledger := di.GetToken(mono.Services(), ammdi.TokenBookToken)

	probeAmount, err := uint256.FromDecimal(cfg.Arbitrage.ProbeAmount)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeConfigurationError, "arbitrage.probe_amount")
	}
	minProfit, err := uint256.FromDecimal(cfg.Arbitrage.MinProfit)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeConfigurationError, "arbitrage.min_profit")
	}
	gasPrice, err := uint256.FromDecimal(cfg.Arbitrage.GasPrice)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeConfigurationError, "arbitrage.gas_price")
	}

	externalEngine, err := newExternalEngine(cfg, ledger, log)
	if err != nil {
		return err
	}
	m.venue = localvenue.New(externalEngine, ledger)

	detector, err := app.NewDetector(app.DetectorConfig{
		MinGapBps:         cfg.Arbitrage.MinGapBps,
		HighConfidenceBps: cfg.Arbitrage.HighConfidenceBps,
		ProbeAmount:       probeAmount,
		ReserveDivisor:    cfg.Arbitrage.ReserveDivisor,
		MinProfit:         minProfit,
		Gas: domain.GasModel{
			BaseGas:        cfg.Arbitrage.GasBase,
			CrossSurcharge: cfg.Arbitrage.GasCrossSurcharge,
			GasPrice:       gasPrice,
		},
	}, engine, m.venue, m.store, log)
	if err != nil {
		return err
	}

	sink := treasury.New(ledger,
		cfg.Arbitrage.OperatorAddressHex(),
		cfg.Arbitrage.TreasuryAddressHex(),
		log)

	executor, err := app.NewExecutor(app.ExecutorConfig{
		Operator: cfg.Arbitrage.OperatorAddressHex(),
	}, engine, m.venue, detector, m.store, ledger, sink, log)
	if err != nil {
		return err
	}

	m.runner = app.NewRunner(app.RunnerConfig{
		ScanInterval:         cfg.Arbitrage.ScanInterval,
		ScansPerMinute:       cfg.Arbitrage.ScansPerMinute,
		MaxExecutionsPerScan: cfg.Arbitrage.MaxExecutionsPerScan,
		MinProfitAfterGas:    minProfit.ToBig(),
	}, detector, executor, log)

	container, ok := mono.Services().(di.Container)
	if !ok {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("service registry is not writable"))
	}
	di.RegisterToken(container, arbdi.DetectorToken, detector)
	di.RegisterToken(container, arbdi.ExecutorToken, executor)
	di.RegisterToken(container, arbdi.RunnerToken, m.runner)
	di.RegisterToken(container, arbdi.VenueToken, m.venue)

	m.runner.Start(ctx)
	return nil
}

// Shutdown stops the loop and releases the venue adapter.
func (m *Module) Shutdown(ctx context.Context) error {
	if m.runner != nil {
		m.runner.Stop(ctx)
	}
	if m.venue != nil {
		m.venue.Close()
	}
	return nil
}

// newExternalEngine builds the second pool engine that stands in for the
// remote venue, mirroring the configured seed pools so both venues start
// from comparable books.
func newExternalEngine(cfg *config.Config, ledger *tokenledger.Ledger, log *logger.Logger) (*ammapp.Engine, error) {
	vault := cfg.Arbitrage.ExternalVenueAddressHex()

	engine, err := ammapp.NewEngine(ammapp.EngineConfig{
		Vault:         vault,
		WrappedNative: cfg.AMM.WrappedNativeHex(),
		DefaultFeeBps: cfg.AMM.DefaultFeeBps,
	}, ledger, log)
	if err != nil {
		return nil, err
	}

	for _, seed := range cfg.AMM.SeedPools {
		tokenA := common.HexToAddress(seed.TokenA)
		tokenB := common.HexToAddress(seed.TokenB)

		amountA, err := uint256.FromDecimal(seed.AmountA)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "seed pool amount")
		}
		amountB, err := uint256.FromDecimal(seed.AmountB)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeConfigurationError, "seed pool amount")
		}

		ledger.Mint(tokenA, vault, amountA)
		ledger.Mint(tokenB, vault, amountB)
		if err := ledger.Approve(tokenA, vault, vault, amountA); err != nil {
			return nil, err
		}
		if err := ledger.Approve(tokenB, vault, vault, amountB); err != nil {
			return nil, err
		}

		call := ammdomain.NewCallContext(vault)
		_, err = engine.CreatePool(context.Background(), call, ammapp.CreatePoolRequest{
			TokenA:   tokenA,
			TokenB:   tokenB,
			AmountA:  amountA,
			AmountB:  amountB,
			Deadline: call.Now.Add(time.Minute),
		})
		if err != nil {
			return nil, err
		}
	}

	return engine, nil
}
