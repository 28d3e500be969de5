package ledgerhttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stakepot/stakepot/internal/domain/ledger"
)

func TestBalance(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/accounts/alice/balance", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]string{"accountId": "alice", "balance": "42.50"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	b, err := c.Balance(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, b.Equal(decimal.RequireFromString("42.50")))
}

func TestBalanceUnknownAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Balance(context.Background(), "ghost")
	require.ErrorIs(t, err, ledger.ErrNoWallet)
}

func TestTransfer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/transfers", r.URL.Path)
		var req struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Amount string `json:"amount"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "alice", req.From)
		assert.Equal(t, "bob", req.To)
		assert.Equal(t, "5", req.Amount)
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":          "5aa2b3c4-0000-4000-8000-000000000001",
			"completedAt": time.Now().UTC().Format(time.RFC3339),
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	receipt, err := c.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.Equal(t, "5aa2b3c4-0000-4000-8000-000000000001", receipt.ID.String())
	assert.Equal(t, "alice", receipt.From)
	assert.True(t, receipt.Amount.Equal(decimal.NewFromInt(5)))
}

func TestTransferInsufficientFunds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(5))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)
}

func TestTransferUnknownAccount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Transfer(context.Background(), "ghost", "bob", decimal.NewFromInt(5))
	require.ErrorIs(t, err, ledger.ErrNoWallet)
}

func TestTransferServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Transfer(context.Background(), "alice", "bob", decimal.NewFromInt(5))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestParseReceiptIDNonUUID(t *testing.T) {
	a, err := parseReceiptID("txn-00042")
	require.NoError(t, err)
	b, err := parseReceiptID("txn-00042")
	require.NoError(t, err)
	assert.Equal(t, a, b, "opaque ids must hash deterministically")
}
