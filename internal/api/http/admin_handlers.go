package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/stakepot/stakepot/internal/domain/audit"
	"github.com/stakepot/stakepot/internal/domain/notification"
)

// requireAdmin guards operator endpoints with a single shared token,
// compared against its bcrypt hash so the plaintext never sits in config.
func (s *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(s.adminTokenHash) == 0 {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "admin endpoints disabled")
			return
		}
		token := r.Header.Get("X-Admin-Token")
		if token == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Admin-Token required")
			return
		}
		if err := bcrypt.CompareHashAndPassword(s.adminTokenHash, []byte(token)); err != nil {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type adminResolveRequest struct {
	Winner string `json:"winner"`
}

func (s *Server) adminResolve(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	var req adminResolveRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.gameSvc.AdminResolve(r.Context(), shortID, strings.TrimSpace(req.Winner))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, result)
}

func (s *Server) adminRefund(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	result, err := s.gameSvc.Refund(r.Context(), shortID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	status := http.StatusOK
	if len(result.Failed) > 0 {
		status = http.StatusMultiStatus
	}
	respondJSON(w, status, result)
}

func (s *Server) gatewayStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"clients": s.sseHub.GetClientCount()})
}

type notifyClientRequest struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// notifyGatewayClient pushes one event to a single gateway subscription.
// Operators use it to check a chat gateway that looks connected but is
// not rendering events.
func (s *Server) notifyGatewayClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientId")
	var req notifyClientRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	if req.Event == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "event required")
		return
	}
	err := s.sseHub.SendToClient(clientID, notification.NewMessage(req.Event, req.Data))
	switch {
	case errors.Is(err, notification.ErrClientNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, notification.ErrChannelFull):
		respondError(w, http.StatusServiceUnavailable, "SLOW_CONSUMER", err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	default:
		respondJSON(w, http.StatusOK, map[string]interface{}{"clientId": clientID, "status": "SENT"})
	}
}

func (s *Server) queryAudit(w http.ResponseWriter, r *http.Request) {
	var filter audit.Filter
	if v := r.URL.Query().Get("kind"); v != "" {
		k := audit.Kind(strings.ToUpper(v))
		filter.Kind = &k
	}
	if v := r.URL.Query().Get("game"); v != "" {
		filter.ShortID = &v
	}
	if v := r.URL.Query().Get("account"); v != "" {
		filter.Account = &v
	}
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid since")
			return
		}
		filter.Since = &t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid until")
			return
		}
		filter.Until = &t
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	entries, err := s.auditSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
