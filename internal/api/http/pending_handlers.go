package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/stakepot/stakepot/internal/application/pending"
)

type proposeTransferRequest struct {
	RecipientID     string  `json:"recipient_id"`
	RecipientHandle string  `json:"recipient_handle"`
	Amount          string  `json:"amount"`
	ChatID          string  `json:"chat_id,omitempty"`
	SenderHandle    *string `json:"sender_handle,omitempty"`
}

func (s *Server) proposeTransfer(w http.ResponseWriter, r *http.Request) {
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	var req proposeTransferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.RecipientID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "recipient_id required")
		return
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil || !amount.IsPositive() {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "amount must be a positive decimal")
		return
	}

	c := s.pendingReg.Propose(pending.ProposeInput{
		SenderID:        caller,
		SenderHandle:    req.SenderHandle,
		RecipientID:     req.RecipientID,
		RecipientHandle: req.RecipientHandle,
		Amount:          amount,
		ChatID:          req.ChatID,
	})
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) confirmTransfer(w http.ResponseWriter, r *http.Request) {
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	token := chi.URLParam(r, "token")
	receipt, err := s.pendingReg.Confirm(r.Context(), token, caller)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"receipt": receipt})
}

func (s *Server) cancelTransfer(w http.ResponseWriter, r *http.Request) {
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	token := chi.URLParam(r, "token")
	if !s.pendingReg.Cancel(token, caller) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no cancellable confirmation for this token")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"token": token, "status": "CANCELLED"})
}
