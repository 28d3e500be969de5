package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/stakepot/stakepot/internal/domain/notification"
)

// sseEndpoint streams gateway events (lobby refreshes, player DMs, admin
// alerts) to the chat layer over server-sent events.
func (s *Server) sseEndpoint(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get("client_id"))
	if clientID == "" {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "client_id required")
		return
	}
	if s.sseHub.GetClient(clientID) != nil {
		respondError(w, http.StatusConflict, "CONFLICT", "client_id already connected")
		return
	}
	var accountPtr *string
	if accountID := accountFromRequest(r); accountID != "" {
		accountPtr = &accountID
	}

	client := notification.NewClient(clientID, accountPtr)
	s.sseHub.Register(client)
	defer s.sseHub.Unregister(clientID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "streaming not supported")
		return
	}
	// Send an initial comment to flush headers and keep the connection alive.
	_, _ = w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ctx := r.Context()
	for {
		select {
		case msg := <-client.MessageChan:
			if msg == nil {
				return
			}
			payload, _ := json.Marshal(msg)
			_, _ = w.Write([]byte("data: "))
			_, _ = w.Write(payload)
			_, _ = w.Write([]byte("\n\n"))
			flusher.Flush()
		case <-ctx.Done():
			return
		}
	}
}
