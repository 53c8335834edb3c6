// Package amm is the pool bounded context: pool lifecycle, liquidity
// accounting, swaps and the price oracle.
package amm

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/dexforge/dexcore/business/amm/app"
	ammdi "github.com/dexforge/dexcore/business/amm/di"
	"github.com/dexforge/dexcore/business/amm/domain"
	"github.com/dexforge/dexcore/business/amm/infra/store"
	"github.com/dexforge/dexcore/business/amm/infra/tokenledger"
	"github.com/dexforge/dexcore/internal/apperror"
	"github.com/dexforge/dexcore/internal/config"
	"github.com/dexforge/dexcore/internal/di"
	"github.com/dexforge/dexcore/internal/monolith"
)

// Module wires the AMM context into the application.
type Module struct {
	engine *app.Engine
	ledger *tokenledger.Ledger
	snaps  *store.SnapshotStore
}

// RegisterServices builds the context's services and publishes them.
func (m *Module) RegisterServices(c di.Container) error {
	m.ledger = tokenledger.New()
	di.RegisterToken(c, ammdi.TokenBookToken, m.ledger)
	return nil
}

// Startup finishes construction with config in hand, restores persisted state
// and seeds configured pools when the ledger is fresh.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	cfg := mono.Config()
	log := mono.Logger()

	engine, err := app.NewEngine(app.EngineConfig{
		Vault:         cfg.AMM.VaultAddressHex(),
		WrappedNative: cfg.AMM.WrappedNativeHex(),
		DefaultFeeBps: cfg.AMM.DefaultFeeBps,
	}, m.ledger, log)
	if err != nil {
		return err
	}
	m.engine = engine

	snaps, err := store.Open(cfg.AMM.SnapshotPath)
	if err != nil {
		return err
	}
	m.snaps = snaps

	pools, positions, err := snaps.Load(ctx)
	if err != nil {
		return err
	}

	switch {
	case len(pools) > 0:
		engine.RestoreState(pools, positions)
		log.Info(ctx, "pool state restored", "pools", len(pools))
	case len(cfg.AMM.SeedPools) > 0:
		if err := m.seedPools(ctx, cfg); err != nil {
			return err
		}
	}

	container, ok := mono.Services().(di.Container)
	if !ok {
		return apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("service registry is not writable"))
	}
	di.RegisterToken(container, ammdi.EngineToken, engine)
	di.RegisterToken(container, ammdi.SnapshotStoreToken, snaps)

	return nil
}

// Shutdown persists the current pool state.
func (m *Module) Shutdown(ctx context.Context) error {
	pools, positions := m.engine.SnapshotState()
	if err := m.snaps.Save(ctx, pools, positions); err != nil {
		return err
	}
	return m.snaps.Close()
}

// seedPools mints the configured deposits to the vault account and creates
// each pool with the vault as the founding LP.
func (m *Module) seedPools(ctx context.Context, cfg *config.Config) error {
	vault := cfg.AMM.VaultAddressHex()

	for _, seed := range cfg.AMM.SeedPools {
		tokenA := common.HexToAddress(seed.TokenA)
		tokenB := common.HexToAddress(seed.TokenB)

		amountA, err := uint256.FromDecimal(seed.AmountA)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeConfigurationError, "seed pool amount")
		}
		amountB, err := uint256.FromDecimal(seed.AmountB)
		if err != nil {
			return apperror.Wrap(err, apperror.CodeConfigurationError, "seed pool amount")
		}

		m.ledger.Mint(tokenA, vault, amountA)
		m.ledger.Mint(tokenB, vault, amountB)
		if err := m.ledger.Approve(tokenA, vault, vault, amountA); err != nil {
			return err
		}
		if err := m.ledger.Approve(tokenB, vault, vault, amountB); err != nil {
			return err
		}

		call := domain.NewCallContext(vault)
		_, err = m.engine.CreatePool(ctx, call, app.CreatePoolRequest{
			TokenA:   tokenA,
			TokenB:   tokenB,
			AmountA:  amountA,
			AmountB:  amountB,
			Deadline: call.Now.Add(time.Minute),
		})
		if err != nil {
			return err
		}
	}
	return nil
}
