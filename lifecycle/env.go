package lifecycle

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/testkit/logger"
	"github.com/kbukum/testkit/mock"
	"github.com/kbukum/testkit/runctx"
	"github.com/kbukum/testkit/snapshot"
)

// Env is what a hook gets.
type Env struct {
	Ctx  context.Context
	Run  *runctx.Context
	Unit Unit
	// View is the unit's working view; nil unless the unit is Stateful.
	View snapshot.View
	// Baseline is the run's read-only baseline; nil when there is no store.
	Baseline snapshot.Baseline
	Mocks    *mock.Registry
	// T records assertion failures of the running hook.
	T   *T
	Log *logger.Logger
}

// Require returns testify require assertions bound to env.T. A failed
// require assertion stops the hook and marks the unit Failed.
func (e *Env) Require() *require.Assertions { return require.New(e.T) }

// Assert returns testify assertions bound to env.T. A failed assertion marks
// the unit Failed once the hook returns.
func (e *Env) Assert() *assert.Assertions { return assert.New(e.T) }

// T is an assertion recorder compatible with testify's TestingT.
type T struct {
	name string
	log  *logger.Logger

	mu     sync.Mutex
	failed bool
	msgs   []string
}

var _ require.TestingT = (*T)(nil)

func newT(name string, log *logger.Logger) *T {
	return &T{name: name, log: log}
}

func (t *T) Name() string { return t.name }

// Helper is a no-op kept for testing.TB-style helpers.
func (t *T) Helper() {}

// Errorf records a failure and continues.
func (t *T) Errorf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
	t.msgs = append(t.msgs, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

// Fail marks the hook failed without a message.
func (t *T) Fail() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failed = true
}

// FailNow marks the hook failed and stops it.
func (t *T) FailNow() {
	t.Fail()
	runtime.Goexit()
}

// Fatalf is Errorf followed by FailNow.
func (t *T) Fatalf(format string, args ...interface{}) {
	t.Errorf(format, args...)
	t.FailNow()
}

// Logf writes to the unit's log at debug level.
func (t *T) Logf(format string, args ...interface{}) {
	t.log.Debug(fmt.Sprintf(format, args...))
}

func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

// Messages returns the recorded failure messages.
func (t *T) Messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.msgs...)
}

func (t *T) reason() string {
	msgs := t.Messages()
	if len(msgs) == 0 {
		return "failed without a message"
	}
	return strings.Join(msgs, "\n")
}
