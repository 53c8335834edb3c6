// Package monolith provides the application container and module interface.
package monolith

import (
	"context"

	"github.com/dexforge/dexcore/internal/config"
	"github.com/dexforge/dexcore/internal/di"
	"github.com/dexforge/dexcore/internal/logger"
)

// Monolith is the main application container providing access to shared
// infrastructure.
type Monolith interface {
	Config() *config.Config
	Logger() *logger.Logger
	Services() di.ServiceRegistry
}

// Module represents a bounded context module that can register services and
// start up.
type Module interface {
	RegisterServices(di.Container) error
	Startup(context.Context, Monolith) error
}

type app struct {
	config    *config.Config
	logger    *logger.Logger
	container di.Container
}

// New creates a new Monolith instance.
func New(cfg *config.Config, log *logger.Logger) *app {
	container := di.NewContainer()
	container.Register("config", cfg)
	container.Register("logger", log)

	return &app{
		config:    cfg,
		logger:    log,
		container: container,
	}
}

func (a *app) Config() *config.Config {
	return a.config
}

func (a *app) Logger() *logger.Logger {
	return a.logger
}

func (a *app) Services() di.ServiceRegistry {
	return a.container
}

// Container returns the DI container for module registration.
func (a *app) Container() di.Container {
	return a.container
}

// RegisterModules registers all provided modules.
func (a *app) RegisterModules(modules ...Module) error {
	for _, m := range modules {
		if err := m.RegisterServices(a.container); err != nil {
			return err
		}
	}
	return nil
}

// StartModules starts all provided modules in order.
func (a *app) StartModules(ctx context.Context, modules ...Module) error {
	for _, m := range modules {
		if err := m.Startup(ctx, a); err != nil {
			return err
		}
	}
	return nil
}
