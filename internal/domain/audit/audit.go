package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind classifies what a transfer moved money for.
type Kind string

const (
	KindStake  Kind = "STAKE"
	KindPayout Kind = "PAYOUT"
	KindRefund Kind = "REFUND"
	KindPeer   Kind = "P2P"
)

// Outcome records whether the ledger call succeeded.
type Outcome string

const (
	OutcomeOK     Outcome = "OK"
	OutcomeFailed Outcome = "FAILED"
)

// Entry is one append-only record of a ledger call attempt. Entries are the
// recovery trail for partially completed payouts and refunds.
type Entry struct {
	ID          int64           `json:"id"`
	EntryID     uuid.UUID       `json:"entryId"`
	Kind        Kind            `json:"kind"`
	ShortID     *string         `json:"shortId,omitempty"`
	FromAccount string          `json:"fromAccount"`
	ToAccount   string          `json:"toAccount"`
	Amount      decimal.Decimal `json:"amount"`
	Outcome     Outcome         `json:"outcome"`
	ReceiptID   *uuid.UUID      `json:"receiptId,omitempty"`
	Error       *string         `json:"error,omitempty"`
	Actor       string          `json:"actor"`
	CreatedAt   time.Time       `json:"createdAt"`
	Signature   []byte          `json:"signature,omitempty"`
}

// Filter narrows audit queries.
type Filter struct {
	Kind    *Kind
	ShortID *string
	Account *string
	Since   *time.Time
	Until   *time.Time
}

// Repository is the append-only audit store.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	List(ctx context.Context, filter Filter, limit, offset int) ([]*Entry, error)
}
