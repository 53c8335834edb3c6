// Package di declares the AMM context's service tokens.
package di

import (
	"github.com/dexforge/dexcore/business/amm/app"
	"github.com/dexforge/dexcore/business/amm/infra/store"
	"github.com/dexforge/dexcore/business/amm/infra/tokenledger"
	"github.com/dexforge/dexcore/internal/di"
)

var (
	// EngineToken resolves the pool engine.
	EngineToken = di.NewToken[*app.Engine]("amm.engine")

	// TokenBookToken resolves the shared token balance book.
	TokenBookToken = di.NewToken[*tokenledger.Ledger]("amm.tokenbook")

	// SnapshotStoreToken resolves the snapshot persistence store.
	SnapshotStoreToken = di.NewToken[*store.SnapshotStore]("amm.snapshotstore")
)
