package ledger

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_ledger.go -package=mocks . Ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNoWallet          = errors.New("no wallet for account")
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// TransferReceipt is the wallet service's confirmation of a completed
// transfer. Receipt ids are the caller's handle for retry bookkeeping.
type TransferReceipt struct {
	ID          uuid.UUID       `json:"id"`
	From        string          `json:"from"`
	To          string          `json:"to"`
	Amount      decimal.Decimal `json:"amount"`
	CompletedAt time.Time       `json:"completedAt"`
}

// Ledger is the external value-movement boundary. Calls may take seconds
// and can fail after partial network completion; an error means "maybe
// happened" for calls the caller will retry from scratch and "not moved,
// retry this transfer" for payout and refund flows.
type Ledger interface {
	// Balance is an advisory read; the Transfer call is the authority.
	Balance(ctx context.Context, accountID string) (decimal.Decimal, error)

	Transfer(ctx context.Context, from, to string, amount decimal.Decimal) (*TransferReceipt, error)
}
