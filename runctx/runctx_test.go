package runctx

import (
	"strings"
	"sync"
	"testing"

	"github.com/kbukum/testkit/logger"
)

type hasher struct{ cost int }

func TestNewGeneratesID(t *testing.T) {
	a, b := New(WithLogger(logger.NewNop())), New(WithLogger(logger.NewNop()))
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("expected distinct non-empty IDs, got %q and %q", a.ID(), b.ID())
	}
	if a.StartedAt().IsZero() {
		t.Error("expected start time")
	}
	if a.Logger() == nil {
		t.Error("expected logger")
	}
}

func TestWithID(t *testing.T) {
	if got := New(WithID("run-7")).ID(); got != "run-7" {
		t.Errorf("expected run-7, got %q", got)
	}
}

func TestService(t *testing.T) {
	rc := New(WithLogger(logger.NewNop()), WithService("hasher", &hasher{cost: 4}))

	h, err := Service[*hasher](rc, "hasher")
	if err != nil {
		t.Fatalf("Service failed: %v", err)
	}
	if h.cost != 4 {
		t.Errorf("expected cost 4, got %d", h.cost)
	}

	if _, err := Service[*hasher](rc, "missing"); err == nil || !strings.Contains(err.Error(), "not registered") {
		t.Errorf("expected not registered error, got %v", err)
	}
	if _, err := Service[string](rc, "hasher"); err == nil {
		t.Error("expected type mismatch error")
	}
}

func TestMustServicePanics(t *testing.T) {
	rc := New(WithLogger(logger.NewNop()))
	defer func() {
		if recover() == nil {
			t.Error("expected panic for missing service")
		}
	}()
	MustService[int](rc, "nope")
}

func TestConcurrentAccess(t *testing.T) {
	rc := New(WithLogger(logger.NewNop()))
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rc.Set("k", i)
			rc.Get("k")
		}(i)
	}
	wg.Wait()
	if _, ok := rc.Get("k"); !ok {
		t.Error("expected key to be set")
	}
}
