package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	appAudit "github.com/stakepot/stakepot/internal/application/audit"
	appGame "github.com/stakepot/stakepot/internal/application/game"
	"github.com/stakepot/stakepot/internal/application/pending"
	"github.com/stakepot/stakepot/internal/domain/catalog"
	"github.com/stakepot/stakepot/internal/domain/game"
	"github.com/stakepot/stakepot/internal/domain/ledger"
	"github.com/stakepot/stakepot/internal/infrastructure/sse"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	gameSvc        *appGame.Service
	pendingReg     *pending.Registry
	auditSvc       *appAudit.Service
	catalog        *catalog.Catalog
	sseHub         *sse.Hub
	adminTokenHash []byte
	logger         zerolog.Logger
}

func NewServer(
	gameSvc *appGame.Service,
	pendingReg *pending.Registry,
	auditSvc *appAudit.Service,
	cat *catalog.Catalog,
	sseHub *sse.Hub,
	adminTokenHash []byte,
	logger zerolog.Logger,
) *Server {
	return &Server{
		gameSvc:        gameSvc,
		pendingReg:     pendingReg,
		auditSvc:       auditSvc,
		catalog:        cat,
		sseHub:         sseHub,
		adminTokenHash: adminTokenHash,
		logger:         logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", s.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/games", func(r chi.Router) {
			r.Post("/", s.createGame)
			r.Get("/", s.listGames)
			r.Get("/types", s.listGameTypes)
			r.Get("/{shortId}", s.getGame)
			r.Post("/{shortId}/join", s.joinGame)
			r.Post("/{shortId}/switch", s.switchTeam)
			r.Post("/{shortId}/leave", s.leaveGame)
			r.Post("/{shortId}/propose", s.proposeWinner)
			r.Post("/{shortId}/vote", s.castVote)
			r.Post("/{shortId}/payout", s.runPayout)
			r.Post("/{shortId}/cancel", s.cancelGame)
		})

		r.Route("/transfers", func(r chi.Router) {
			r.Post("/pending", s.proposeTransfer)
			r.Post("/pending/{token}/confirm", s.confirmTransfer)
			r.Post("/pending/{token}/cancel", s.cancelTransfer)
		})

		r.Get("/events", s.sseEndpoint)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.requireAdmin)
			r.Post("/games/{shortId}/resolve", s.adminResolve)
			r.Post("/games/{shortId}/refund", s.adminRefund)
			r.Get("/audit", s.queryAudit)
			r.Get("/gateway", s.gatewayStatus)
			r.Post("/gateway/clients/{clientId}/notify", s.notifyGatewayClient)
		})
	})

	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{"status": "ok"})
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondDomainError maps engine errors onto HTTP statuses. Anything
// unrecognized is an internal error.
func respondDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrNotFound), errors.Is(err, pending.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, ledger.ErrNoWallet):
		respondError(w, http.StatusNotFound, "NO_WALLET", err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		respondError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, game.ErrWrongStatus),
		errors.Is(err, game.ErrSessionFull),
		errors.Is(err, game.ErrAlreadyJoined),
		errors.Is(err, game.ErrAlreadyVoted),
		errors.Is(err, game.ErrSideFull),
		errors.Is(err, game.ErrShortIDTaken),
		errors.Is(err, game.ErrConflict):
		respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, game.ErrNotAPlayer),
		errors.Is(err, game.ErrCreatorLeave),
		errors.Is(err, game.ErrNotCreator),
		errors.Is(err, pending.ErrForbidden):
		respondError(w, http.StatusForbidden, "FORBIDDEN", err.Error())
	case errors.Is(err, pending.ErrExpired):
		respondError(w, http.StatusGone, "EXPIRED", err.Error())
	case errors.Is(err, game.ErrNotTeamGame),
		errors.Is(err, game.ErrInvalidWinner),
		errors.Is(err, game.ErrNoWinner),
		errors.Is(err, appGame.ErrInvalidWager),
		errors.Is(err, catalog.ErrUnknownGameType),
		errors.Is(err, catalog.ErrInvalidPlayerCount):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, appGame.ErrTransferFailed):
		respondError(w, http.StatusBadGateway, "TRANSFER_FAILED", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// accountFromRequest identifies the caller. The chat gateway terminates
// user auth and forwards the account id; an empty header means the request
// never went through the gateway.
func accountFromRequest(r *http.Request) string {
	return r.Header.Get("X-Account-ID")
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
