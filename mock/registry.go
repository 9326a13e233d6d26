package mock

import (
	"reflect"
	"sync"

	"github.com/kbukum/testkit/logger"
)

// Registry is the mock scope of one unit execution.
type Registry struct {
	log *logger.Logger

	mu      sync.Mutex
	handles []*Handle
	fakes   map[any]*Handle
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for call tracing.
func WithLogger(l *logger.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// NewRegistry creates an empty mock scope.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{fakes: make(map[any]*Handle)}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.NewNop()
	}
	return r
}

// Mock creates a strict handle for capability.
func (r *Registry) Mock(capability string) *Handle { return r.create(capability, Strict) }

// Spy creates a spy handle for capability.
func (r *Registry) Spy(capability string) *Handle { return r.create(capability, Spy) }

func (r *Registry) create(capability string, mode Mode) *Handle {
	h := newHandle(capability, mode, r.log.WithFields(map[string]interface{}{
		logger.FieldCapability: capability,
	}))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, h)
	return h
}

// Handles returns every handle in creation order.
func (r *Registry) Handles() []*Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Handle(nil), r.handles...)
}

// Verify verifies every handle in creation order.
func (r *Registry) Verify() []error {
	var violations []error
	for _, h := range r.Handles() {
		violations = append(violations, h.Verify()...)
	}
	return violations
}

// New creates a handle for capability C and returns the fake built by
// factory. The capability is named after C, e.g. "app.Notifier".
func New[C any](r *Registry, mode Mode, factory func(*Handle) C) C {
	h := r.create(CapabilityOf[C](), mode)
	fake := factory(h)
	if key, ok := fakeKey(fake); ok {
		r.mu.Lock()
		r.fakes[key] = h
		r.mu.Unlock()
	}
	return fake
}

// HandleOf returns the handle behind a fake created by New, or nil.
func HandleOf(r *Registry, fake any) *Handle {
	key, ok := fakeKey(fake)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fakes[key]
}

// CapabilityOf names capability C.
func CapabilityOf[C any]() string {
	return reflect.TypeFor[C]().String()
}

// fakeKey returns a map key identifying fake. Only comparable dynamic
// values can be looked up later.
func fakeKey(fake any) (any, bool) {
	if fake == nil || !reflect.TypeOf(fake).Comparable() {
		return nil, false
	}
	return fake, true
}
