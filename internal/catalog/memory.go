package catalog

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/epicvibe/platform/internal/epicvibe"
)

// MemoryStore keeps games in a slice in insertion order. Contents are lost
// on restart. Games go in and come out as deep copies.
type MemoryStore struct {
	mu    sync.Mutex
	games []epicvibe.Game
	seq   int64
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: func() time.Time { return time.Now().UTC() }}
}

func (s *MemoryStore) List(_ context.Context, opts ListOptions) ([]epicvibe.Game, int, error) {
	s.mu.Lock()
	snapshot := make([]epicvibe.Game, len(s.games))
	for i, g := range s.games {
		snapshot[i] = g.Clone()
	}
	s.mu.Unlock()

	page, total := query(snapshot, opts.normalize())
	return page, total, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (epicvibe.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return epicvibe.Game{}, notFound(id)
	}
	return s.games[i].Clone(), nil
}

func (s *MemoryStore) Insert(_ context.Context, g epicvibe.Game) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	g.ID = gameID(s.seq)
	s.games = append(s.games, g.Clone())
	return g.ID, nil
}

func (s *MemoryStore) Update(_ context.Context, id string, patch Patch, actingUserID string) (epicvibe.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return epicvibe.Game{}, notFound(id)
	}
	g := s.games[i].Clone()
	if err := applyPatch(&g, patch, actingUserID, s.now()); err != nil {
		return epicvibe.Game{}, err
	}
	s.games[i] = g
	return g.Clone(), nil
}

func (s *MemoryStore) Remove(_ context.Context, id, actingUserID string) (epicvibe.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return epicvibe.Game{}, notFound(id)
	}
	g := s.games[i]
	if err := checkOwner(g, actingUserID); err != nil {
		return epicvibe.Game{}, err
	}
	s.games = slices.Delete(s.games, i, i+1)
	return g, nil
}

func (s *MemoryStore) Modify(_ context.Context, id string, fn func(*epicvibe.Game) error) (epicvibe.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return epicvibe.Game{}, notFound(id)
	}
	g := s.games[i].Clone()
	if err := fn(&g); err != nil {
		return epicvibe.Game{}, err
	}
	g.ID = id
	s.games[i] = g.Clone()
	return g, nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.games), nil
}

func (s *MemoryStore) index(id string) int {
	return slices.IndexFunc(s.games, func(g epicvibe.Game) bool { return g.ID == id })
}
