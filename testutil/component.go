package testutil

import (
	"context"

	"github.com/kbukum/testkit/component"
)

// TestComponent extends component.Component with state capture. A
// TestComponent can back a snapshot store through RestoreBackend, or be
// driven directly from a test with THelper.
type TestComponent interface {
	component.Component

	// Reset restores the component to its initial, empty state.
	Reset(ctx context.Context) error

	// Snapshot captures the current state of the component.
	// The returned value can be passed to Restore to return to this state.
	Snapshot(ctx context.Context) (interface{}, error)

	// Restore returns the component to a state captured by Snapshot.
	Restore(ctx context.Context, snapshot interface{}) error
}
