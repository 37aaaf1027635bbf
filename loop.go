package wext

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
)

var _ Timeouts = &Loop{}

// ErrLoopClosed is returned when work is submitted to a Loop which is no
// longer running.
var ErrLoopClosed = errors.New("event loop closed")

// A Loop runs functions one at a time on a single goroutine. A Driver is not
// safe for concurrent use; run each Driver on its own Loop and call it only
// from functions executed by that Loop.
//
// Loop also implements Timeouts: expired timeouts run on the Loop.
type Loop struct {
	funcs chan func()
	done  chan struct{}
	once  sync.Once

	mu     sync.Mutex
	timers map[TimeoutID]*loopTimer
}

type loopTimer struct {
	t *time.Timer
}

// NewLoop creates a Loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{
		funcs:  make(chan func(), 16),
		done:   make(chan struct{}),
		timers: make(map[TimeoutID]*loopTimer),
	}
}

// Run executes posted functions until ctx is canceled. Pending timeouts are
// discarded when Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.funcs:
			fn()
		}
	}
}

func (l *Loop) close() {
	l.once.Do(func() {
		close(l.done)

		l.mu.Lock()
		defer l.mu.Unlock()
		for id, lt := range l.timers {
			lt.t.Stop()
			delete(l.timers, id)
		}
	})
}

func (l *Loop) closed() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Post queues fn for execution and returns without waiting. It reports
// false if the Loop has stopped.
func (l *Loop) Post(fn func()) bool {
	if l.closed() {
		return false
	}

	select {
	case l.funcs <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do executes fn on the Loop and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.closed() {
		return ErrLoopClosed
	}

	ran := make(chan struct{})
	wrapped := func() {
		defer close(ran)
		fn()
	}

	select {
	case l.funcs <- wrapped:
	case <-l.done:
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-l.done:
		// Run may have returned with wrapped still queued.
		select {
		case <-ran:
			return nil
		default:
			return ErrLoopClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterTimeout arranges for fn to run on the Loop after d. Any pending
// timeout with the same id is replaced.
func (l *Loop) RegisterTimeout(d time.Duration, id TimeoutID, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.timers[id]; ok {
		old.t.Stop()
	}

	lt := &loopTimer{}
	lt.t = time.AfterFunc(d, func() {
		l.Post(func() {
			// The timeout may have been canceled or replaced after the timer
			// fired but before this function ran.
			l.mu.Lock()
			current := l.timers[id] == lt
			if current {
				delete(l.timers, id)
			}
			l.mu.Unlock()

			if current {
				fn()
			}
		})
	})
	l.timers[id] = lt
}

// CancelTimeout cancels the pending timeout with the given id and returns
// the number of timeouts removed.
func (l *Loop) CancelTimeout(id TimeoutID) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	lt, ok := l.timers[id]
	if !ok {
		return 0
	}

	lt.t.Stop()
	delete(l.timers, id)
	return 1
}

// Pending returns the number of registered timeouts.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.timers)
}
