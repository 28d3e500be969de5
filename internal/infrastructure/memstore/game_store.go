package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/stakepot/stakepot/internal/domain/game"
)

// GameStore is an in-memory game.Repository. The mutex makes every Update a
// single atomic conditional update, matching the contract the postgres
// implementation provides with row locks. Used by tests and single-node
// dev mode.
type GameStore struct {
	mu       sync.Mutex
	sessions map[string]*game.Session
	nextID   int64
}

func NewGameStore() *GameStore {
	return &GameStore{sessions: make(map[string]*game.Session)}
}

func (s *GameStore) Create(ctx context.Context, sess *game.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ShortID]; ok {
		return game.ErrShortIDTaken
	}
	s.nextID++
	sess.ID = s.nextID
	s.sessions[sess.ShortID] = sess.Clone()
	return nil
}

func (s *GameStore) GetByShortID(ctx context.Context, shortID string) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[shortID]
	if !ok {
		return nil, nil
	}
	return sess.Clone(), nil
}

func (s *GameStore) Update(ctx context.Context, shortID string, mutate func(*game.Session) error) (*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[shortID]
	if !ok {
		return nil, game.ErrNotFound
	}
	next := cur.Clone()
	if err := mutate(next); err != nil {
		return nil, err
	}
	next.Version++
	s.sessions[shortID] = next
	return next.Clone(), nil
}

func (s *GameStore) List(ctx context.Context, filter game.Filter, limit, offset int) ([]*game.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*game.Session
	for _, sess := range s.sessions {
		if filter.Status != nil && sess.Status != *filter.Status {
			continue
		}
		if filter.GameType != nil && sess.GameType != *filter.GameType {
			continue
		}
		out = append(out, sess.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
