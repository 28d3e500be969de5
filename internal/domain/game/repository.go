package game

import (
	"context"
)

// Filter narrows List results.
type Filter struct {
	Status   *Status
	GameType *string
}

// Repository is the session store boundary. Implementations must make
// Update a single atomic conditional update: the mutation runs against the
// current persisted state and either commits in full or, when the mutation
// returns an error, writes nothing. Two racing updates must serialize; a
// loser that cannot be serialized surfaces ErrConflict for the caller to
// re-read and retry.
type Repository interface {
	// Create persists a new session, failing with ErrShortIDTaken when the
	// short id is already in use.
	Create(ctx context.Context, s *Session) error

	// GetByShortID returns (nil, nil) when no session exists.
	GetByShortID(ctx context.Context, shortID string) (*Session, error)

	// Update applies mutate to the current state of the session and persists
	// the result atomically. The returned session is the post-mutation state;
	// callers must tally and branch on it, never on a stale pre-read.
	Update(ctx context.Context, shortID string, mutate func(*Session) error) (*Session, error)

	// List returns sessions matching the filter, newest first.
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Session, error)
}
