package memstore

import (
	"context"
	"sync"

	"github.com/stakepot/stakepot/internal/domain/audit"
)

// AuditStore is an in-memory audit.Repository.
type AuditStore struct {
	mu      sync.Mutex
	entries []*audit.Entry
	nextID  int64
}

func NewAuditStore() *AuditStore {
	return &AuditStore{}
}

func (s *AuditStore) Create(ctx context.Context, e *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	cp := *e
	cp.ID = s.nextID
	s.entries = append(s.entries, &cp)
	return nil
}

func (s *AuditStore) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*audit.Entry
	for i := len(s.entries) - 1; i >= 0; i-- {
		e := s.entries[i]
		if filter.Kind != nil && e.Kind != *filter.Kind {
			continue
		}
		if filter.ShortID != nil && (e.ShortID == nil || *e.ShortID != *filter.ShortID) {
			continue
		}
		if filter.Account != nil && e.FromAccount != *filter.Account && e.ToAccount != *filter.Account {
			continue
		}
		if filter.Since != nil && e.CreatedAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && e.CreatedAt.After(*filter.Until) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}
