// Package di provides a minimal, type-safe dependency injection container.
//
// Services are registered against string tokens. Plain values (config,
// shared clients) go through Container.Register/ServiceRegistry.Get; typed
// factories go through the generic RegisterToken/GetToken helpers, which
// memoize the constructed value the first time it is requested so that
// every caller observes the same instance without each bounded context
// needing to know about the others' construction order.
package di

import (
	"fmt"
	"sync"
)

// ServiceRegistry is the read side of the container, handed to module
// factories so they can look up dependencies registered by other modules.
type ServiceRegistry interface {
	Get(token string) any
	Has(token string) bool
}

// Container is the read/write side, used during the registration phase.
type Container interface {
	ServiceRegistry
	Register(token string, value any)
}

type container struct {
	mu        sync.RWMutex
	values    map[string]any
	factories map[string]func(ServiceRegistry) any
	building  map[string]bool
}

// NewContainer creates an empty container.
func NewContainer() *container {
	return &container{
		values:    make(map[string]any),
		factories: make(map[string]func(ServiceRegistry) any),
		building:  make(map[string]bool),
	}
}

// Register stores a concrete value under token, available immediately.
func (c *container) Register(token string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[token] = value
}

// registerFactory stores a lazy factory under token. The factory runs at
// most once; its result is memoized into values.
func (c *container) registerFactory(token string, factory func(ServiceRegistry) any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[token] = factory
}

// Get resolves a token, building it from its factory on first access.
func (c *container) Get(token string) any {
	c.mu.RLock()
	if v, ok := c.values[token]; ok {
		c.mu.RUnlock()
		return v
	}
	factory, ok := c.factories[token]
	if c.building[token] {
		c.mu.RUnlock()
		panic(fmt.Sprintf("di: cycle detected resolving token %q", token))
	}
	c.mu.RUnlock()

	if !ok {
		panic(fmt.Sprintf("di: no registration for token %q", token))
	}

	c.mu.Lock()
	c.building[token] = true
	c.mu.Unlock()

	value := factory(c)

	c.mu.Lock()
	c.values[token] = value
	delete(c.building, token)
	c.mu.Unlock()

	return value
}

// Has reports whether a token has either a concrete value or a factory.
func (c *container) Has(token string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.values[token]; ok {
		return true
	}
	_, ok := c.factories[token]
	return ok
}

// RegisterToken registers a typed factory under token. The factory is
// invoked lazily and at most once; use the matching GetToken to retrieve
// the value with its static type restored.
func RegisterToken[T any](c Container, token string, factory func(ServiceRegistry) T) {
	cc, ok := c.(*container)
	if !ok {
		// Fall back to eager construction for any Container implementation
		// that isn't our own (e.g. a test double) - still exactly-once per
		// registration call, just not lazily memoized.
		c.Register(token, factory(c))
		return
	}
	cc.registerFactory(token, func(sr ServiceRegistry) any {
		return factory(sr)
	})
}

// GetToken resolves a token registered via RegisterToken (or Register) and
// restores its static type. Panics if the stored value is not a T.
func GetToken[T any](sr ServiceRegistry, token string) T {
	v := sr.Get(token)
	typed, ok := v.(T)
	if !ok {
		panic(fmt.Sprintf("di: token %q has type %T, not %T", token, v, *new(T)))
	}
	return typed
}
