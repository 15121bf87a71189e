// Package txn exposes the host transaction outcome to attachment handlers.
package txn

import (
	"sync"

	"github.com/fruitsalade/attachments/internal/logging"
	"go.uber.org/zap"
)

// Transaction lets handlers react to the end of the host transaction.
type Transaction interface {
	// OnCompletion registers fn to run once the transaction has finished.
	OnCompletion(fn func(committed bool))
}

// Listeners collects completion callbacks and runs each exactly once.
// A callback registered after completion runs immediately with the recorded
// outcome. The zero value is ready to use.
type Listeners struct {
	mu        sync.Mutex
	fns       []func(bool)
	done      bool
	committed bool
}

// OnCompletion implements Transaction.
func (l *Listeners) OnCompletion(fn func(committed bool)) {
	l.mu.Lock()
	if l.done {
		committed := l.committed
		l.mu.Unlock()
		run(fn, committed)
		return
	}
	l.fns = append(l.fns, fn)
	l.mu.Unlock()
}

// Finish runs the registered callbacks in registration order. Only the first
// call has any effect. A panicking callback is logged and does not stop the
// others.
func (l *Listeners) Finish(committed bool) {
	l.mu.Lock()
	if l.done {
		l.mu.Unlock()
		return
	}
	l.done = true
	l.committed = committed
	fns := l.fns
	l.fns = nil
	l.mu.Unlock()

	for _, fn := range fns {
		run(fn, committed)
	}
}

// Done reports whether Finish has been called.
func (l *Listeners) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done
}

func run(fn func(bool), committed bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("transaction completion callback panicked",
				zap.Any("panic", r), zap.Bool("committed", committed))
		}
	}()
	fn(committed)
}

// Local is an in-process transaction for hosts without their own
// transaction manager, and for tests.
type Local struct {
	Listeners
}

// NewLocal starts a Local transaction.
func NewLocal() *Local {
	return &Local{}
}

// Commit finishes the transaction successfully.
func (t *Local) Commit() { t.Finish(true) }

// Rollback finishes the transaction unsuccessfully.
func (t *Local) Rollback() { t.Finish(false) }
