// Package di declares the arbitrage context's service tokens.
package di

import (
	"github.com/dexforge/dexcore/business/arbitrage/app"
	"github.com/dexforge/dexcore/business/arbitrage/infra/localvenue"
	"github.com/dexforge/dexcore/internal/di"
)

var (
	// StoreToken resolves the pending-opportunity store.
	StoreToken = di.NewToken[*app.OpportunityStore]("arbitrage.store")

	// DetectorToken resolves the opportunity detector.
	DetectorToken = di.NewToken[*app.Detector]("arbitrage.detector")

	// ExecutorToken resolves the opportunity executor.
	ExecutorToken = di.NewToken[*app.Executor]("arbitrage.executor")

	// RunnerToken resolves the autonomous scan loop.
	RunnerToken = di.NewToken[*app.Runner]("arbitrage.runner")

	// VenueToken resolves the external venue adapter.
	VenueToken = di.NewToken[*localvenue.Venue]("arbitrage.venue")
)
