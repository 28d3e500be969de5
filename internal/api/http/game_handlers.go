package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	appGame "github.com/stakepot/stakepot/internal/application/game"
	"github.com/stakepot/stakepot/internal/domain/game"
)

type createGameRequest struct {
	GameType    string  `json:"game_type"`
	PlayerCount int     `json:"player_count"`
	Wager       string  `json:"wager"`
	Handle      *string `json:"handle,omitempty"`
	LobbyChatID *string `json:"lobby_chat_id,omitempty"`
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	wager, err := decimal.NewFromString(strings.TrimSpace(req.Wager))
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid wager")
		return
	}

	sess, err := s.gameSvc.Create(r.Context(), appGame.CreateInput{
		GameType:      strings.ToLower(strings.TrimSpace(req.GameType)),
		CreatorID:     caller,
		CreatorHandle: req.Handle,
		PlayerCount:   req.PlayerCount,
		Wager:         wager,
		LobbyChatID:   req.LobbyChatID,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, sess)
}

func (s *Server) listGames(w http.ResponseWriter, r *http.Request) {
	var filter game.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		st := game.Status(strings.ToUpper(v))
		filter.Status = &st
	}
	if v := r.URL.Query().Get("game_type"); v != "" {
		gt := strings.ToLower(v)
		filter.GameType = &gt
	}
	limit, offset := parseLimitOffset(r, 50, 200)
	sessions, err := s.gameSvc.List(r.Context(), filter, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"games": sessions})
}

func (s *Server) listGameTypes(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"types": s.catalog.Types()})
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	sess, err := s.gameSvc.Get(r.Context(), shortID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "game not found")
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type joinGameRequest struct {
	Handle *string `json:"handle,omitempty"`
	Side   *int    `json:"side,omitempty"`
}

func (s *Server) joinGame(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	var req joinGameRequest
	_ = decodeBody(r, &req)

	sess, err := s.gameSvc.Join(r.Context(), shortID, caller, req.Handle, req.Side)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) switchTeam(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	sess, err := s.gameSvc.SwitchTeam(r.Context(), shortID, caller)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

func (s *Server) leaveGame(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	sess, err := s.gameSvc.Leave(r.Context(), shortID, caller)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess)
}

type proposeWinnerRequest struct {
	Winner string `json:"winner"`
}

func (s *Server) proposeWinner(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	var req proposeWinnerRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	sess, err := s.gameSvc.Get(r.Context(), shortID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	if sess == nil {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "game not found")
		return
	}
	winner, err := sess.ParseWinner(strings.TrimSpace(req.Winner))
	if err != nil {
		respondDomainError(w, err)
		return
	}

	updated, err := s.gameSvc.Propose(r.Context(), shortID, caller, winner)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

type castVoteRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) castVote(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	var req castVoteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.gameSvc.CastVote(r.Context(), shortID, caller, req.Approve)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

func (s *Server) runPayout(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	result, err := s.gameSvc.Payout(r.Context(), shortID)
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

func (s *Server) cancelGame(w http.ResponseWriter, r *http.Request) {
	shortID := chi.URLParam(r, "shortId")
	caller := accountFromRequest(r)
	if caller == "" {
		respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "X-Account-ID required")
		return
	}
	result, err := s.gameSvc.Cancel(r.Context(), shortID, caller)
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
