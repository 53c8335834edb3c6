// Command dexcore runs the pool engine, the arbitrage loop and the read-only
// API as one process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dexforge/dexcore/business/amm"
	ammdi "github.com/dexforge/dexcore/business/amm/di"
	"github.com/dexforge/dexcore/business/arbitrage"
	arbdi "github.com/dexforge/dexcore/business/arbitrage/di"
	"github.com/dexforge/dexcore/internal/config"
	"github.com/dexforge/dexcore/internal/di"
	"github.com/dexforge/dexcore/internal/health"
	"github.com/dexforge/dexcore/internal/httpapi"
	"github.com/dexforge/dexcore/internal/logger"
	"github.com/dexforge/dexcore/internal/metrics"
	"github.com/dexforge/dexcore/internal/monolith"
)

const version = "0.3.0"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dexcore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	// Missing .env is fine; config falls back to defaults.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log := logger.New(os.Stdout, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "starting", "version", version, "environment", cfg.App.Environment)

	if cfg.Telemetry.Enabled {
		provider, err := metrics.NewMeterProvider(cfg.Telemetry.ServiceName)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = provider.Shutdown(shutdownCtx)
		}()

		go func() {
			if err := metrics.ServePrometheus(cfg.Telemetry.PrometheusPort); err != nil {
				log.Error(ctx, "prometheus endpoint failed", "error", err)
			}
		}()
	}

	healthSrv := health.NewServer(cfg.API.HealthPort, version)
	go func() {
		if err := healthSrv.Start(); err != nil {
			log.Error(ctx, "health server failed", "error", err)
		}
	}()

	ammModule := &amm.Module{}
	arbModule := &arbitrage.Module{}

	app := monolith.New(cfg, log)
	if err := app.RegisterModules(ammModule, arbModule); err != nil {
		return err
	}
	if err := app.StartModules(ctx, ammModule, arbModule); err != nil {
		return err
	}

	engine := di.GetToken(app.Services(), ammdi.EngineToken)
	opps := di.GetToken(app.Services(), arbdi.StoreToken)
	apiSrv := httpapi.New(cfg.API.ListenAddr, engine, opps, log)
	apiSrv.Start()

	healthSrv.RegisterCheck("arbitrage_loop", func(context.Context) (bool, string) {
		runner := di.GetToken(app.Services(), arbdi.RunnerToken)
		if !runner.Active() {
			return false, "loop stopped"
		}
		return true, "running"
	})

	log.Info(ctx, "ready", "api", cfg.API.ListenAddr)
	<-ctx.Done()

	log.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := apiSrv.Stop(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "api shutdown failed", "error", err)
	}
	if err := arbModule.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "arbitrage shutdown failed", "error", err)
	}
	if err := ammModule.Shutdown(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "pool state save failed", "error", err)
	}
	if err := healthSrv.Stop(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "health shutdown failed", "error", err)
	}

	return nil
}
