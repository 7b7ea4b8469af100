package notedb

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// FSNotifier is an fsnotify-backed [Notifier] watching a data directory
// tree recursively. Paths are delivered relative to the root with forward
// slashes, matching what the path parsers expect.
//
// fsnotify has no recursive mode, so every existing subdirectory is added
// at start and newly created directories are added as they appear. Rename
// and remove events are delivered like writes; consumers re-read the
// entity and treat a missing file as deletion.
type FSNotifier struct {
	root    string
	watcher *fsnotify.Watcher
	log     *slog.Logger

	mu       sync.Mutex
	subs     map[int]func(PathEvent)
	nextSub  int
	closed   bool
	done     chan struct{}
	loopDone sync.WaitGroup
}

// NewFSNotifier starts watching root recursively. The root is created if
// missing so the subscription outlives an initially empty data directory.
func NewFSNotifier(root string, log *slog.Logger) (*FSNotifier, error) {
	if log == nil {
		log = slog.Default()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	n := &FSNotifier{
		root:    root,
		watcher: watcher,
		log:     log,
		subs:    make(map[int]func(PathEvent)),
		done:    make(chan struct{}),
	}

	err = n.watchTree(root)
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}

	n.loopDone.Add(1)

	go n.loop()

	return n, nil
}

// Listen registers a subscriber and returns its removal func.
func (n *FSNotifier) Listen(fn func(PathEvent)) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, fmt.Errorf("notifier closed")
	}

	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()

		delete(n.subs, id)
	}, nil
}

// Close stops the watcher and waits for the event loop to exit.
func (n *FSNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}

	n.closed = true
	n.mu.Unlock()

	close(n.done)

	err := n.watcher.Close()

	n.loopDone.Wait()

	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}

	return nil
}

func (n *FSNotifier) watchTree(root string) error {
	err := os.MkdirAll(root, 0o750)
	if err != nil {
		return fmt.Errorf("create watch root: %w", err)
	}

	return filepath.WalkDir(root, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if !entry.IsDir() {
			return nil
		}

		addErr := n.watcher.Add(p)
		if addErr != nil {
			return fmt.Errorf("watch %s: %w", p, addErr)
		}

		return nil
	})
}

func (n *FSNotifier) loop() {
	defer n.loopDone.Done()

	for {
		select {
		case <-n.done:
			return

		case event, ok := <-n.watcher.Events:
			if !ok {
				return
			}

			n.handle(event)

		case err, ok := <-n.watcher.Errors:
			if !ok {
				return
			}

			n.log.Error("watcher error", "err", err)
		}
	}
}

func (n *FSNotifier) handle(event fsnotify.Event) {
	// Chmod-only events carry no content change.
	if event.Op == fsnotify.Chmod {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := n.watcher.Add(event.Name); err != nil {
				n.log.Error("watch new directory", "path", event.Name, "err", err)
			}
		}
	}

	rel, err := filepath.Rel(n.root, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = event.Name
	}

	ev := PathEvent{Path: filepath.ToSlash(rel)}

	n.mu.Lock()
	subs := make([]func(PathEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
}
