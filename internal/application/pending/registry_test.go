package pending

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	appAudit "github.com/stakepot/stakepot/internal/application/audit"
	"github.com/stakepot/stakepot/internal/domain/ledger"
	ledgerMocks "github.com/stakepot/stakepot/internal/domain/ledger/mocks"
	"github.com/stakepot/stakepot/internal/infrastructure/memstore"
)

func newTestRegistry(t *testing.T, ldg ledger.Ledger, ttl time.Duration) *Registry {
	t.Helper()
	auditSvc := appAudit.NewService(memstore.NewAuditStore(), nil, zerolog.Nop())
	return NewRegistry(ldg, auditSvc, ttl, zerolog.Nop())
}

func propose(r *Registry, sender, recipient string, amount int64) *Confirmation {
	return r.Propose(ProposeInput{
		SenderID:        sender,
		RecipientID:     recipient,
		RecipientHandle: "@" + recipient,
		Amount:          decimal.NewFromInt(amount),
		ChatID:          "chat-1",
	})
}

func TestProposeIssuesUniqueTokens(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := newTestRegistry(t, ledgerMocks.NewMockLedger(ctrl), 0)
	a := propose(r, "alice", "bob", 5)
	b := propose(r, "alice", "bob", 5)
	require.NotEqual(t, a.Token, b.Token)
	assert.Equal(t, 2, r.Len())
}

func TestConfirmTransfersExactlyOnce(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ldg := ledgerMocks.NewMockLedger(ctrl)
	r := newTestRegistry(t, ldg, 0)
	c := propose(r, "alice", "bob", 5)

	amount := decimal.NewFromInt(5)
	ldg.EXPECT().Transfer(gomock.Any(), "alice", "bob", amount).
		Return(&ledger.TransferReceipt{From: "alice", To: "bob", Amount: amount}, nil)

	receipt, err := r.Confirm(context.Background(), c.Token, "alice")
	require.NoError(t, err)
	require.NotNil(t, receipt)

	// A second confirm finds nothing; the mock would reject a second transfer.
	_, err = r.Confirm(context.Background(), c.Token, "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmFailedTransferConsumesEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	ldg := ledgerMocks.NewMockLedger(ctrl)
	r := newTestRegistry(t, ldg, 0)
	c := propose(r, "alice", "bob", 5)

	ldg.EXPECT().Transfer(gomock.Any(), "alice", "bob", gomock.Any()).
		Return(nil, fmt.Errorf("wallet down"))

	_, err := r.Confirm(context.Background(), c.Token, "alice")
	require.Error(t, err)

	// The entry was consumed before the ledger call; no blind retry.
	_, err = r.Confirm(context.Background(), c.Token, "alice")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestConfirmRejectsNonOwner(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := newTestRegistry(t, ledgerMocks.NewMockLedger(ctrl), 0)
	c := propose(r, "alice", "bob", 5)

	_, err := r.Confirm(context.Background(), c.Token, "mallory")
	require.ErrorIs(t, err, ErrForbidden)

	// The entry survives a foreign confirm attempt.
	assert.Equal(t, 1, r.Len())
}

func TestConfirmExpiredEntry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := newTestRegistry(t, ledgerMocks.NewMockLedger(ctrl), time.Minute)
	c := propose(r, "alice", "bob", 5)

	r.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := r.Confirm(context.Background(), c.Token, "alice")
	require.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, 0, r.Len(), "expired entry must be evicted on access")
}

func TestCancel(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := newTestRegistry(t, ledgerMocks.NewMockLedger(ctrl), 0)
	c := propose(r, "alice", "bob", 5)

	assert.False(t, r.Cancel(c.Token, "mallory"))
	assert.True(t, r.Cancel(c.Token, "alice"))
	assert.False(t, r.Cancel(c.Token, "alice"))
	assert.Equal(t, 0, r.Len())
}

func TestSweepEvictsOnlyExpired(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	r := newTestRegistry(t, ledgerMocks.NewMockLedger(ctrl), time.Minute)
	old := propose(r, "alice", "bob", 5)
	_ = old

	base := time.Now()
	r.now = func() time.Time { return base.Add(2 * time.Minute) }
	fresh := r.Propose(ProposeInput{
		SenderID:    "carol",
		RecipientID: "dave",
		Amount:      decimal.NewFromInt(3),
	})

	removed := r.Sweep()
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, r.Len())
	assert.True(t, r.Cancel(fresh.Token, "carol"))
}
