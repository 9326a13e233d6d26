package testutil

import (
	"context"
	"testing"

	"github.com/kbukum/testkit/component"
)

// THelper provides testing.T integration for components used outside a
// runner, such as fakes shared by a few plain go tests.
type THelper struct {
	t   testing.TB
	ctx context.Context
}

// T wraps t to provide helper methods.
//
// Example:
//
//	func TestCache(t *testing.T) {
//	    testutil.T(t).Start(cache)
//	    // cache is stopped when the test ends
//	}
func T(t testing.TB) *THelper {
	return &THelper{
		t:   t,
		ctx: context.Background(),
	}
}

// WithContext sets a custom context for the helper.
func (h *THelper) WithContext(ctx context.Context) *THelper {
	h.ctx = ctx
	return h
}

// Start starts c and registers its Stop with t.Cleanup.
func (h *THelper) Start(c component.Component) {
	h.t.Helper()
	if err := c.Start(h.ctx); err != nil {
		h.t.Fatalf("failed to start component %s: %v", c.Name(), err)
	}

	h.t.Cleanup(func() {
		if err := c.Stop(h.ctx); err != nil {
			h.t.Errorf("failed to stop component %s: %v", c.Name(), err)
		}
	})
}

// Reset resets c to its initial state.
func (h *THelper) Reset(c TestComponent) {
	h.t.Helper()
	if err := c.Reset(h.ctx); err != nil {
		h.t.Fatalf("failed to reset component %s: %v", c.Name(), err)
	}
}

// Snapshot captures the current state of c.
func (h *THelper) Snapshot(c TestComponent) interface{} {
	h.t.Helper()
	snapshot, err := c.Snapshot(h.ctx)
	if err != nil {
		h.t.Fatalf("failed to snapshot component %s: %v", c.Name(), err)
	}
	return snapshot
}

// Restore returns c to a previously captured state.
func (h *THelper) Restore(c TestComponent, snapshot interface{}) {
	h.t.Helper()
	if err := c.Restore(h.ctx, snapshot); err != nil {
		h.t.Fatalf("failed to restore component %s: %v", c.Name(), err)
	}
}

// Isolate snapshots c now and restores it when the test ends.
func (h *THelper) Isolate(c TestComponent) {
	h.t.Helper()
	state := h.Snapshot(c)
	h.t.Cleanup(func() {
		if err := c.Restore(h.ctx, state); err != nil {
			h.t.Errorf("failed to restore component %s: %v", c.Name(), err)
		}
	})
}
