package notedb

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Batcher coalesces keyed items into a single flush per debounce window.
//
// Add overwrites any pending item under the same key (last write wins
// within a window) and restarts the timer. When the timer fires, the flush
// callback receives every distinct key seen since the last flush, and the
// pending set is cleared atomically. The callback is invoked at most once
// per window, without the batcher lock held.
type Batcher[T any] struct {
	clock   clockwork.Clock
	window  time.Duration
	onFlush func(items map[string]T)

	mu      sync.Mutex
	pending map[string]T
	timer   clockwork.Timer
}

// NewBatcher creates a batcher flushing through onFlush after window of
// quiet time following the last Add.
func NewBatcher[T any](clock clockwork.Clock, window time.Duration, onFlush func(items map[string]T)) *Batcher[T] {
	if clock == nil {
		panic("clock is nil")
	}

	if onFlush == nil {
		panic("onFlush is nil")
	}

	return &Batcher[T]{
		clock:   clock,
		window:  window,
		onFlush: onFlush,
		pending: make(map[string]T),
	}
}

// Add records an item under key and restarts the debounce timer.
func (b *Batcher[T]) Add(key string, item T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending[key] = item

	if b.timer != nil {
		b.timer.Stop()
	}

	b.timer = b.clock.AfterFunc(b.window, b.fire)
}

// Flush delivers pending items immediately, cancelling the timer.
func (b *Batcher[T]) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
	}
	b.mu.Unlock()

	b.fire()
}

// Clear discards pending items without invoking the callback.
func (b *Batcher[T]) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}

	b.pending = make(map[string]T)
}

func (b *Batcher[T]) fire() {
	b.mu.Lock()

	items := b.pending
	b.pending = make(map[string]T)
	b.timer = nil

	b.mu.Unlock()

	if len(items) == 0 {
		return
	}

	b.onFlush(items)
}
