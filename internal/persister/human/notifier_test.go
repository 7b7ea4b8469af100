package human_test

import (
	"sync"

	"github.com/echonote/notedb/pkg/notedb"
)

type stubNotifier struct {
	mu sync.Mutex
	fn func(notedb.PathEvent)
}

func (s *stubNotifier) Listen(fn func(notedb.PathEvent)) (func(), error) {
	s.mu.Lock()
	s.fn = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.fn = nil
		s.mu.Unlock()
	}, nil
}

func (s *stubNotifier) emit(path string) {
	s.mu.Lock()
	fn := s.fn
	s.mu.Unlock()

	if fn != nil {
		fn(notedb.PathEvent{Path: path})
	}
}
