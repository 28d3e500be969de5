package pending

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appAudit "github.com/stakepot/stakepot/internal/application/audit"
	"github.com/stakepot/stakepot/internal/domain/audit"
	"github.com/stakepot/stakepot/internal/domain/ledger"
)

var (
	ErrNotFound  = errors.New("pending confirmation not found")
	ErrExpired   = errors.New("pending confirmation expired")
	ErrForbidden = errors.New("caller does not own this confirmation")
)

// DefaultTTL is how long a proposed transfer waits for confirmation.
const DefaultTTL = 5 * time.Minute

// Confirmation is a single proposed transfer awaiting the sender's explicit
// confirmation. Entries are addressed by a random token, never by chat or
// session id, so unrelated flows cannot interfere with each other.
type Confirmation struct {
	Token           string          `json:"token"`
	SenderID        string          `json:"senderId"`
	SenderHandle    *string         `json:"senderHandle,omitempty"`
	RecipientID     string          `json:"recipientId"`
	RecipientHandle string          `json:"recipientHandle"`
	Amount          decimal.Decimal `json:"amount"`
	ChatID          string          `json:"chatId"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// Registry is the process-local holding area for transfers proposed on a
// user's behalf (by the AI agent, notably), which must never touch the
// ledger without the sender pressing confirm. It is the sole owner of its
// entries; each entry is consumed exactly once by confirm, cancel or
// expiry.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*Confirmation

	ttl      time.Duration
	ledger   ledger.Ledger
	auditSvc *appAudit.Service
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRegistry creates a registry. A non-positive ttl falls back to
// DefaultTTL.
func NewRegistry(ldg ledger.Ledger, auditSvc *appAudit.Service, ttl time.Duration, logger zerolog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		entries:  make(map[string]*Confirmation),
		ttl:      ttl,
		ledger:   ldg,
		auditSvc: auditSvc,
		logger:   logger.With().Str("service", "pending").Logger(),
		now:      time.Now,
	}
}

// ProposeInput describes a transfer awaiting confirmation.
type ProposeInput struct {
	SenderID        string
	SenderHandle    *string
	RecipientID     string
	RecipientHandle string
	Amount          decimal.Decimal
	ChatID          string
}

// Propose stores the entry under a fresh unguessable token and returns it
// for the confirm/cancel presentation.
func (r *Registry) Propose(in ProposeInput) *Confirmation {
	c := &Confirmation{
		Token:           uuid.NewString(),
		SenderID:        in.SenderID,
		SenderHandle:    in.SenderHandle,
		RecipientID:     in.RecipientID,
		RecipientHandle: in.RecipientHandle,
		Amount:          in.Amount,
		ChatID:          in.ChatID,
		CreatedAt:       r.now().UTC(),
	}
	r.mu.Lock()
	r.entries[c.Token] = c
	r.mu.Unlock()
	r.logger.Debug().Str("token", c.Token).Str("sender", c.SenderID).Msg("transfer proposed")
	return c
}

// Confirm consumes the entry and performs the transfer. The entry is
// removed before the ledger call, so a slow or failed transfer can never
// be confirmed a second time; the ledger round-trip runs outside the
// registry lock so it cannot stall unrelated confirms.
func (r *Registry) Confirm(ctx context.Context, token, callerID string) (*ledger.TransferReceipt, error) {
	c, err := r.take(token, callerID)
	if err != nil {
		return nil, err
	}

	receipt, err := r.ledger.Transfer(ctx, c.SenderID, c.RecipientID, c.Amount)
	r.record(ctx, c, receipt, err)
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return receipt, nil
}

// Cancel consumes the entry without a ledger call. It reports false when
// the token is unknown, expired or owned by someone else.
func (r *Registry) Cancel(token, callerID string) bool {
	_, err := r.take(token, callerID)
	return err == nil
}

// take looks up, validates and removes an entry in one short critical
// section. Expired entries are evicted on access regardless of outcome.
func (r *Registry) take(token, callerID string) (*Confirmation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.entries[token]
	if !ok {
		return nil, ErrNotFound
	}
	if r.now().Sub(c.CreatedAt) > r.ttl {
		delete(r.entries, token)
		return nil, ErrExpired
	}
	if c.SenderID != callerID {
		return nil, ErrForbidden
	}
	delete(r.entries, token)
	return c, nil
}

// Sweep evicts expired entries and returns how many were removed. Lazy
// eviction in take already guarantees no expired entry is observable; the
// sweep only bounds memory.
func (r *Registry) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	removed := 0
	cutoff := r.now()
	for token, c := range r.entries {
		if cutoff.Sub(c.CreatedAt) > r.ttl {
			delete(r.entries, token)
			removed++
		}
	}
	if removed > 0 {
		r.logger.Debug().Int("removed", removed).Msg("swept expired confirmations")
	}
	return removed
}

// Len returns the number of live entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) record(ctx context.Context, c *Confirmation, receipt *ledger.TransferReceipt, transferErr error) {
	entry := &audit.Entry{
		EntryID:     uuid.New(),
		Kind:        audit.KindPeer,
		FromAccount: c.SenderID,
		ToAccount:   c.RecipientID,
		Amount:      c.Amount,
		Outcome:     audit.OutcomeOK,
		Actor:       c.SenderID,
		CreatedAt:   time.Now().UTC(),
	}
	if receipt != nil {
		id := receipt.ID
		entry.ReceiptID = &id
	}
	if transferErr != nil {
		entry.Outcome = audit.OutcomeFailed
		msg := transferErr.Error()
		entry.Error = &msg
	}
	r.auditSvc.Record(ctx, entry)
}
