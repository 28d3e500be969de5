package audit

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/stakepot/stakepot/internal/domain/audit"
)

// Service records and queries the transfer audit trail.
type Service struct {
	repo    audit.Repository
	signKey []byte
	logger  zerolog.Logger
}

// NewService creates an audit service. A nil signKey disables signing.
func NewService(repo audit.Repository, signKey []byte, logger zerolog.Logger) *Service {
	return &Service{
		repo:    repo,
		signKey: signKey,
		logger:  logger.With().Str("service", "audit").Logger(),
	}
}

// Record persists an audit entry asynchronously. Recording failures are
// logged and never surface to the calling operation.
func (s *Service) Record(ctx context.Context, entry *audit.Entry) {
	go func() {
		if err := s.RecordSync(context.Background(), entry); err != nil {
			s.logger.Error().Err(err).
				Str("kind", string(entry.Kind)).
				Str("from", entry.FromAccount).
				Str("to", entry.ToAccount).
				Msg("failed to record audit entry")
		}
	}()
}

// RecordSync persists an audit entry synchronously.
func (s *Service) RecordSync(ctx context.Context, entry *audit.Entry) error {
	if len(s.signKey) > 0 {
		sig, err := audit.SignEntry(entry, s.signKey)
		if err != nil {
			return fmt.Errorf("failed to sign audit entry: %w", err)
		}
		entry.Signature = sig
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	s.logger.Debug().
		Str("entryId", entry.EntryID.String()).
		Str("kind", string(entry.Kind)).
		Str("outcome", string(entry.Outcome)).
		Str("amount", entry.Amount.String()).
		Msg("audit entry recorded")
	return nil
}

// List returns audit entries matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter audit.Filter, limit, offset int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.List(ctx, filter, limit, offset)
}

// VerifyIntegrity re-computes an entry's signature against the service key.
func (s *Service) VerifyIntegrity(entry *audit.Entry) (bool, error) {
	if len(s.signKey) == 0 {
		return false, fmt.Errorf("no signing key configured")
	}
	return audit.VerifyEntrySignature(entry, s.signKey)
}
