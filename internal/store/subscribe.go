package store

import (
	"context"
	"sync"

	"echosync/internal/cases"
)

// subscribers is a per-store listener registry. It deliberately lives on the
// Store instance so independent stores (as in tests) never share state.
type subscribers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func([]*cases.Case)
}

// Subscribe registers a listener invoked with the full current snapshot after
// every successful save or delete. The returned function deregisters the
// listener; calling it more than once is harmless.
func (s *Store) Subscribe(fn func([]*cases.Case)) func() {
	if fn == nil {
		return func() {}
	}
	s.subs.mu.Lock()
	defer s.subs.mu.Unlock()
	if s.subs.fns == nil {
		s.subs.fns = make(map[int]func([]*cases.Case))
	}
	id := s.subs.nextID
	s.subs.nextID++
	s.subs.fns[id] = fn

	return func() {
		s.subs.mu.Lock()
		defer s.subs.mu.Unlock()
		delete(s.subs.fns, id)
	}
}

// notify delivers the current snapshot to every listener, synchronously. A
// listener that panics is isolated so delivery to the rest proceeds. Snapshot
// read failures suppress delivery; the store itself stays consistent.
func (s *Store) notify(ctx context.Context) {
	s.subs.mu.Lock()
	fns := make([]func([]*cases.Case), 0, len(s.subs.fns))
	for _, fn := range s.subs.fns {
		fns = append(fns, fn)
	}
	s.subs.mu.Unlock()

	if len(fns) == 0 {
		return
	}

	snapshot, err := s.List(ctx)
	if err != nil {
		return
	}

	for _, fn := range fns {
		deliver(fn, cloneSnapshot(snapshot))
	}
}

func deliver(fn func([]*cases.Case), snapshot []*cases.Case) {
	defer func() {
		_ = recover()
	}()
	fn(snapshot)
}

func cloneSnapshot(snapshot []*cases.Case) []*cases.Case {
	cp := make([]*cases.Case, len(snapshot))
	for i, record := range snapshot {
		cp[i] = record.Clone()
	}
	return cp
}
