package middleware

import (
	"sync"
	"time"
)

// EventLoop serializes all state mutation onto one goroutine. Channel read
// loops, HTTP handlers, timers and renderer completions post closures here;
// handlers run in arrival order and never concurrently.
type EventLoop struct {
	ch      chan func()
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex
	wg      sync.WaitGroup
}

type LoopOption func(*EventLoop)

// WithQueueSize sets the pending-event buffer size.
func WithQueueSize(n int) LoopOption {
	return func(l *EventLoop) {
		if n > 0 {
			l.ch = make(chan func(), n)
		}
	}
}

// NewEventLoop creates a stopped loop.
func NewEventLoop(opts ...LoopOption) *EventLoop {
	l := &EventLoop{
		ch:     make(chan func(), 256),
		stopCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Start launches the drain goroutine. Calling Start twice is a no-op.
func (l *EventLoop) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-l.stopCh:
				return
			case fn := <-l.ch:
				if fn != nil {
					fn()
				}
			}
		}
	}()
}

// Stop halts the drain goroutine; queued events are discarded.
func (l *EventLoop) Stop() {
	l.mu.Lock()
	if !l.started {
		l.mu.Unlock()
		return
	}
	l.started = false
	l.mu.Unlock()

	close(l.stopCh)
	l.wg.Wait()
}

// Post enqueues fn for execution on the loop goroutine. Returns false when
// the queue is full or the loop is stopped; events are dropped rather than
// blocking the caller.
func (l *EventLoop) Post(fn func()) bool {
	select {
	case <-l.stopCh:
		return false
	case l.ch <- fn:
		return true
	default:
		return false
	}
}

// PostDelayed schedules fn onto the loop after d. The returned cancel func
// is safe to call more than once and after firing.
func (l *EventLoop) PostDelayed(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() {
		l.Post(fn)
	})
	return func() { t.Stop() }
}
