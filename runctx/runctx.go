// Package runctx carries the state of one engine run.
//
// Hooks, migrators and seeders receive a *Context instead of reaching for
// process-wide singletons. Anything a suite would otherwise keep in a global
// (a configured application instance, a password hasher, a clock) is stored
// here under a key before the run starts and read back by the hooks.
package runctx

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/testkit/logger"
)

// Context is the explicit per-run context. It is safe for concurrent use.
type Context struct {
	id        string
	startedAt time.Time
	log       *logger.Logger

	mu       sync.RWMutex
	services map[string]any
}

// Option configures a Context.
type Option func(*Context)

// WithID sets the run ID instead of generating one.
func WithID(id string) Option {
	return func(c *Context) { c.id = id }
}

// WithLogger sets the run logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Context) { c.log = l }
}

// WithService registers a service at construction.
func WithService(key string, v any) Option {
	return func(c *Context) { c.services[key] = v }
}

// New creates a run context with a fresh uuid.
func New(opts ...Option) *Context {
	c := &Context{
		id:        uuid.NewString(),
		startedAt: time.Now(),
		services:  make(map[string]any),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("run")
	}
	c.log = c.log.WithFields(logger.Fields(logger.FieldRunID, c.id))
	return c
}

// ID returns the run ID.
func (c *Context) ID() string { return c.id }

// StartedAt returns when the context was created.
func (c *Context) StartedAt() time.Time { return c.startedAt }

// Logger returns the run logger, tagged with the run ID.
func (c *Context) Logger() *logger.Logger { return c.log }

// Set stores a service under key, replacing any previous value.
func (c *Context) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key] = v
}

// Get returns the service stored under key.
func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.services[key]
	return v, ok
}

// Service returns the service stored under key as a T.
func Service[T any](c *Context, key string) (T, error) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, fmt.Errorf("run service %q not registered", key)
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("run service %q is %T, not %T", key, v, zero)
	}
	return t, nil
}

// MustService is Service that panics when the service is missing. Use it in
// hooks, where the panic is classified as an unhandled failure.
func MustService[T any](c *Context, key string) T {
	t, err := Service[T](c, key)
	if err != nil {
		panic(err)
	}
	return t
}
