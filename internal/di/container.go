// Package di provides a minimal typed service container used to wire bounded
// context modules without import cycles.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container.
type ServiceRegistry interface {
	Resolve(key string) (any, bool)
}

// Container registers and resolves services by key.
type Container interface {
	ServiceRegistry
	Register(key string, service any)
}

type container struct {
	mu       sync.RWMutex
	services map[string]any
}

// NewContainer creates an empty container.
func NewContainer() Container {
	return &container{services: make(map[string]any)}
}

func (c *container) Register(key string, service any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key] = service
}

func (c *container) Resolve(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.services[key]
	return s, ok
}

// Token is a typed service key.
type Token[T any] struct {
	key string
}

// NewToken creates a typed token for the given key.
func NewToken[T any](key string) Token[T] {
	return Token[T]{key: key}
}

// Key returns the raw key string.
func (t Token[T]) Key() string {
	return t.key
}

// RegisterToken registers a service under a typed token.
func RegisterToken[T any](c Container, t Token[T], service T) {
	c.Register(t.key, service)
}

// GetToken resolves a typed token, panicking on missing or mistyped services.
// Wiring errors are programmer errors and should fail loudly at startup.
func GetToken[T any](r ServiceRegistry, t Token[T]) T {
	s, ok := r.Resolve(t.key)
	if !ok {
		panic(fmt.Sprintf("di: service %q not registered", t.key))
	}
	typed, ok := s.(T)
	if !ok {
		panic(fmt.Sprintf("di: service %q has unexpected type %T", t.key, s))
	}
	return typed
}
