package notedb

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// PathEvent is one "this path changed" notification.
type PathEvent struct {
	Path string
}

// Notifier is a path-changed notification stream. Listen registers a
// callback and returns its removal func, or an error when the subscription
// cannot be established (the caller then falls back to polling where the
// mode supports it).
type Notifier interface {
	Listen(fn func(PathEvent)) (unlisten func(), err error)
}

// EntityInfo identifies one changed entity: its id and the last path seen
// for it within the debounce window.
type EntityInfo struct {
	EntityID string
	Path     string
}

// DefaultDebounce is the entity-mode debounce window.
const DefaultDebounce = 50 * time.Millisecond

// DefaultPollInterval is the simple-mode fallback polling interval.
const DefaultPollInterval = 5 * time.Minute

// Handle is a live listener registration. Close tears down the
// subscription, any fallback poll ticker, and any pending debounce timer;
// no callbacks are delivered afterwards (an event mid-delivery at close
// time may be dropped).
type Handle struct {
	mu       sync.Mutex
	closed   bool
	unlisten func()
	stopPoll func()
	batcher  *Batcher[EntityInfo]
}

// Close tears the listener down. Idempotent.
func (h *Handle) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.closed = true

	if h.unlisten != nil {
		h.unlisten()
	}

	if h.stopPoll != nil {
		h.stopPoll()
	}

	if h.batcher != nil {
		h.batcher.Clear()
	}
}

func (h *Handle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.closed
}

// EntityListenerConfig configures entity-mode listening: matched paths are
// resolved to entity ids and debounced per id.
type EntityListenerConfig struct {
	// Label names the listener in logs.
	Label string

	// Match filters raw paths before id parsing.
	Match func(path string) bool

	// ParseID resolves a matched path to an entity id.
	ParseID func(path string) (string, bool)

	// Debounce window; DefaultDebounce when zero.
	Debounce time.Duration

	// Log defaults to slog.Default.
	Log *slog.Logger
}

// ListenEntities subscribes fn to per-entity change notifications.
//
// Events within one debounce window collapse to one invocation per
// distinct entity, carrying the last seen path. When the subscription
// cannot be established the failure is logged and the handle is inert
// (entity mode has no polling fallback; persisters still load on demand).
func ListenEntities(n Notifier, clock clockwork.Clock, cfg EntityListenerConfig, fn func(EntityInfo)) *Handle {
	window := cfg.Debounce
	if window == 0 {
		window = DefaultDebounce
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	h := &Handle{}

	h.batcher = NewBatcher[EntityInfo](clock, window, func(items map[string]EntityInfo) {
		if h.isClosed() {
			return
		}

		ids := make([]string, 0, len(items))
		for id := range items {
			ids = append(ids, id)
		}

		sort.Strings(ids)

		for _, id := range ids {
			fn(items[id])
		}
	})

	unlisten, err := n.Listen(func(ev PathEvent) {
		if cfg.Match != nil && !cfg.Match(ev.Path) {
			return
		}

		id, ok := cfg.ParseID(ev.Path)
		if !ok {
			return
		}

		h.batcher.Add(id, EntityInfo{EntityID: id, Path: ev.Path})
	})
	if err != nil {
		log.Error("entity listener: subscription failed", "listener", cfg.Label, "err", err)
		return h
	}

	h.mu.Lock()
	h.unlisten = unlisten
	h.mu.Unlock()

	return h
}

// SimpleListenerConfig configures simple-mode listening: matched paths
// invoke the callback directly, with a polling fallback when the
// subscription cannot be established.
type SimpleListenerConfig struct {
	Label string

	Match func(path string) bool

	// PollInterval for the fallback; DefaultPollInterval when zero.
	PollInterval time.Duration

	Log *slog.Logger
}

// ListenSimple subscribes fn to change notifications without batching.
//
// If the subscription fails, fn is instead invoked on a fixed polling
// interval; the callback must re-derive what changed since its last run.
func ListenSimple(n Notifier, clock clockwork.Clock, cfg SimpleListenerConfig, fn func()) *Handle {
	interval := cfg.PollInterval
	if interval == 0 {
		interval = DefaultPollInterval
	}

	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}

	h := &Handle{}

	unlisten, err := n.Listen(func(ev PathEvent) {
		if cfg.Match != nil && !cfg.Match(ev.Path) {
			return
		}

		if h.isClosed() {
			return
		}

		fn()
	})
	if err != nil {
		log.Error("simple listener: subscription failed, polling instead",
			"listener", cfg.Label, "interval", interval, "err", err)

		done := make(chan struct{})
		ticker := clock.NewTicker(interval)

		go func() {
			defer ticker.Stop()

			for {
				select {
				case <-done:
					return
				case <-ticker.Chan():
					if h.isClosed() {
						return
					}

					fn()
				}
			}
		}()

		h.mu.Lock()
		h.stopPoll = func() { close(done) }
		h.mu.Unlock()

		return h
	}

	h.mu.Lock()
	h.unlisten = unlisten
	h.mu.Unlock()

	return h
}
