package game

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	appAudit "github.com/stakepot/stakepot/internal/application/audit"
	"github.com/stakepot/stakepot/internal/domain/audit"
	"github.com/stakepot/stakepot/internal/domain/catalog"
	domainGame "github.com/stakepot/stakepot/internal/domain/game"
	"github.com/stakepot/stakepot/internal/domain/ledger"
	"github.com/stakepot/stakepot/internal/domain/notification"
)

var (
	// ErrTransferFailed wraps a ledger failure surfaced to the caller.
	ErrTransferFailed = errors.New("ledger transfer failed")
	// ErrInvalidWager rejects zero and negative wagers.
	ErrInvalidWager = errors.New("wager must be positive")
)

const (
	shortIDAttempts    = 5
	joinUpdateAttempts = 3
)

// Service is the wagered game-session engine: escrow collection, lifecycle
// state machine, winner voting and payout/refund distribution.
type Service struct {
	repo     domainGame.Repository
	catalog  *catalog.Catalog
	ledger   ledger.Ledger
	escrow   string
	auditSvc *appAudit.Service
	notifier notification.Port
	logger   zerolog.Logger
}

// NewService creates the session engine. escrow is the holding account all
// stakes move into and all payouts and refunds are issued from.
func NewService(
	repo domainGame.Repository,
	cat *catalog.Catalog,
	ldg ledger.Ledger,
	escrow string,
	auditSvc *appAudit.Service,
	notifier notification.Port,
	logger zerolog.Logger,
) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		ledger:   ldg,
		escrow:   escrow,
		auditSvc: auditSvc,
		notifier: notifier,
		logger:   logger.With().Str("service", "game").Logger(),
	}
}

// CreateInput describes a new session request.
type CreateInput struct {
	GameType      string
	CreatorID     string
	CreatorHandle *string
	PlayerCount   int
	Wager         decimal.Decimal
	LobbyChatID   *string
}

// Create collects the creator's stake into escrow and then, only then,
// persists a new waiting session with the creator as player 0. A ledger
// failure creates no session; a storage failure after the stake moved
// triggers a compensating refund so no funds are stranded.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domainGame.Session, error) {
	cfg, err := s.catalog.Validate(in.GameType, in.PlayerCount)
	if err != nil {
		return nil, err
	}
	if !in.Wager.IsPositive() {
		return nil, ErrInvalidWager
	}

	// Advisory balance check before a pointless fallible transfer.
	balance, err := s.ledger.Balance(ctx, in.CreatorID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(in.Wager) {
		return nil, ledger.ErrInsufficientFunds
	}

	receipt, err := s.ledger.Transfer(ctx, in.CreatorID, s.escrow, in.Wager)
	s.recordTransfer(ctx, audit.KindStake, nil, in.CreatorID, s.escrow, in.Wager, receipt, err, in.CreatorID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	now := time.Now().UTC()
	sess := &domainGame.Session{
		GameType:    cfg.Type,
		TotalSlots:  in.PlayerCount,
		TeamMode:    cfg.TeamMode,
		Wager:       in.Wager,
		Status:      domainGame.StatusWaiting,
		LobbyChatID: in.LobbyChatID,
		CreatedAt:   now,
		Version:     1,
		Players: []domainGame.Player{{
			AccountID: in.CreatorID,
			Handle:    in.CreatorHandle,
			Side:      domainGame.SideA,
			Paid:      true,
			JoinedAt:  now,
		}},
	}

	for attempt := 0; attempt < shortIDAttempts; attempt++ {
		sess.ShortID = newShortID()
		err = s.repo.Create(ctx, sess)
		if errors.Is(err, domainGame.ErrShortIDTaken) {
			continue
		}
		break
	}
	if err != nil {
		// Stake is in escrow but no session exists: give it back.
		s.compensate(ctx, audit.KindRefund, nil, in.CreatorID, in.Wager, in.CreatorID)
		return nil, fmt.Errorf("persist session: %w", err)
	}

	s.logger.Info().
		Str("shortId", sess.ShortID).
		Str("gameType", sess.GameType).
		Str("wager", sess.Wager.String()).
		Int("slots", sess.TotalSlots).
		Msg("session created")
	s.notifier.RefreshLobby(sess.ShortID)
	return sess, nil
}

// Get fetches a session by short id.
func (s *Service) Get(ctx context.Context, shortID string) (*domainGame.Session, error) {
	return s.repo.GetByShortID(ctx, shortID)
}

// List returns sessions matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter domainGame.Filter, limit, offset int) ([]*domainGame.Session, error) {
	return s.repo.List(ctx, filter, limit, offset)
}

// Join collects the joiner's stake and then appends them atomically; the
// join that fills the last slot also flips the session to ACTIVE in the
// same update. Losing the slot race after the stake moved triggers a
// compensating refund.
func (s *Service) Join(ctx context.Context, shortID, accountID string, handle *string, chosenSide *int) (*domainGame.Session, error) {
	sess, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domainGame.ErrNotFound
	}

	// Cheap pre-checks so an obviously doomed join skips the transfer.
	if sess.Status != domainGame.StatusWaiting {
		return nil, domainGame.ErrWrongStatus
	}
	if sess.IsFull() {
		return nil, domainGame.ErrSessionFull
	}
	if sess.PlayerByAccount(accountID) != nil {
		return nil, domainGame.ErrAlreadyJoined
	}
	balance, err := s.ledger.Balance(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if balance.LessThan(sess.Wager) {
		return nil, ledger.ErrInsufficientFunds
	}

	receipt, err := s.ledger.Transfer(ctx, accountID, s.escrow, sess.Wager)
	s.recordTransfer(ctx, audit.KindStake, &shortID, accountID, s.escrow, sess.Wager, receipt, err, accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	side := domainGame.SideA
	if chosenSide != nil {
		side = *chosenSide
	}
	player := domainGame.Player{AccountID: accountID, Handle: handle, Side: side, Paid: true}

	var updated *domainGame.Session
	for attempt := 0; attempt < joinUpdateAttempts; attempt++ {
		updated, err = s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
			return cur.ApplyJoin(player, time.Now().UTC())
		})
		if errors.Is(err, domainGame.ErrConflict) {
			continue
		}
		break
	}
	if err != nil {
		// Someone else took the slot (or the state moved on): the stake is
		// in escrow with no player record, so it must come straight back.
		s.compensate(ctx, audit.KindRefund, &shortID, accountID, sess.Wager, accountID)
		return nil, err
	}

	s.notifier.RefreshLobby(shortID)
	if updated.Status == domainGame.StatusActive {
		for _, p := range updated.Players {
			s.notifier.NotifyPlayer(p.AccountID, fmt.Sprintf("Game %s is full, play on!", shortID))
		}
	}
	return updated, nil
}

// SwitchTeam flips the caller's side in a waiting team game.
func (s *Service) SwitchTeam(ctx context.Context, shortID, accountID string) (*domainGame.Session, error) {
	updated, err := s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
		return cur.ApplySwitchTeam(accountID)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.RefreshLobby(shortID)
	return updated, nil
}

// Leave refunds the leaver's stake from escrow and then removes them from a
// waiting session. The creator can never leave.
func (s *Service) Leave(ctx context.Context, shortID, accountID string) (*domainGame.Session, error) {
	sess, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domainGame.ErrNotFound
	}
	if sess.Status != domainGame.StatusWaiting {
		return nil, domainGame.ErrWrongStatus
	}
	p := sess.PlayerByAccount(accountID)
	if p == nil {
		return nil, domainGame.ErrNotAPlayer
	}
	if c := sess.Creator(); c != nil && c.AccountID == accountID {
		return nil, domainGame.ErrCreatorLeave
	}

	if p.Paid {
		receipt, err := s.ledger.Transfer(ctx, s.escrow, accountID, sess.Wager)
		s.recordTransfer(ctx, audit.KindRefund, &shortID, s.escrow, accountID, sess.Wager, receipt, err, accountID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	updated, err := s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
		return cur.ApplyLeave(accountID)
	})
	if err != nil {
		if p.Paid {
			// The refund already landed but the leave lost its race: the
			// last slot filled during the ledger round-trip, so the caller
			// stays a paid player and the stake must come straight back
			// into escrow or a later refund would pay them twice.
			receipt, cerr := s.ledger.Transfer(ctx, accountID, s.escrow, sess.Wager)
			s.recordTransfer(ctx, audit.KindStake, &shortID, accountID, s.escrow, sess.Wager, receipt, cerr, accountID)
			if cerr != nil {
				s.logger.Error().Err(cerr).
					Str("shortId", shortID).
					Str("account", accountID).
					Str("amount", sess.Wager.String()).
					Msg("failed to re-collect stake after lost leave race, escrow is short")
			}
		}
		return nil, err
	}
	s.notifier.RefreshLobby(shortID)
	s.notifier.NotifyPlayer(accountID, fmt.Sprintf("You left game %s, your %s stake was refunded.", shortID, sess.Wager.String()))
	return updated, nil
}

// Propose records the creator's winner and opens a voting round.
func (s *Service) Propose(ctx context.Context, shortID, callerID string, winner domainGame.Winner) (*domainGame.Session, error) {
	updated, err := s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
		return cur.ApplyProposal(callerID, winner)
	})
	if err != nil {
		return nil, err
	}
	s.notifier.RefreshLobby(shortID)
	for _, p := range updated.Players {
		if p.AccountID == callerID {
			continue
		}
		s.notifier.NotifyPlayer(p.AccountID, fmt.Sprintf("Winner proposed for game %s: %s. Cast your vote.", shortID, winner.String()))
	}
	return updated, nil
}

// VoteResult is the post-vote state of the round.
type VoteResult struct {
	Session   *domainGame.Session    `json:"session"`
	Approvals int                    `json:"approvals"`
	Denials   int                    `json:"denials"`
	Outcome   domainGame.VoteOutcome `json:"outcome"`
}

// CastVote appends the vote and settles the tally against the post-append
// state inside a single atomic update. Reaching the approval majority
// completes the session (payout is a separate call); reaching the denial
// majority marks it disputed.
func (s *Service) CastVote(ctx context.Context, shortID, voterID string, approve bool) (*VoteResult, error) {
	var outcome domainGame.VoteOutcome
	updated, err := s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
		if err := cur.ApplyVote(voterID, approve, time.Now().UTC()); err != nil {
			return err
		}
		outcome = cur.SettleVotes(time.Now().UTC())
		return nil
	})
	if err != nil {
		return nil, err
	}
	approvals, denials := updated.Tally()
	result := &VoteResult{Session: updated, Approvals: approvals, Denials: denials, Outcome: outcome}

	s.notifier.RefreshLobby(shortID)
	switch outcome {
	case domainGame.VoteCompleted:
		if c := updated.Creator(); c != nil {
			s.notifier.NotifyPlayer(c.AccountID, fmt.Sprintf("Game %s resolved: %s wins. Run payout.", shortID, updated.Winner.String()))
		}
	case domainGame.VoteDisputed:
		s.notifier.NotifyAdmin(shortID, fmt.Sprintf("game %s disputed at %d-%d, admin resolution required", shortID, approvals, denials))
	}
	return result, nil
}

// TransferFailure reports one winner or refundee the ledger rejected.
type TransferFailure struct {
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

// PayoutResult lists the receipts obtained so far and the transfers still
// owed. The session stays COMPLETED on partial failure; callers retry for
// the failed subset using the receipts to avoid double-paying.
type PayoutResult struct {
	Session  *domainGame.Session       `json:"session"`
	Pot      decimal.Decimal           `json:"pot"`
	Share    decimal.Decimal           `json:"share"`
	Receipts []*ledger.TransferReceipt `json:"receipts"`
	Failed   []TransferFailure         `json:"failed,omitempty"`
}

// Payout distributes the pot to the recorded winner(s): the full pot to a
// single player, or an even split (truncated to minor units) across the
// winning side's paid players.
func (s *Service) Payout(ctx context.Context, shortID string) (*PayoutResult, error) {
	sess, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domainGame.ErrNotFound
	}
	if sess.Status != domainGame.StatusCompleted {
		return nil, domainGame.ErrWrongStatus
	}
	if sess.Winner.IsZero() {
		return nil, domainGame.ErrNoWinner
	}

	winners := sess.Winners()
	pot := sess.Pot()
	share := pot
	if _, isSide := sess.Winner.Side(); isSide {
		share = domainGame.SplitPot(pot, len(winners))
	}

	result := &PayoutResult{Session: sess, Pot: pot, Share: share}
	for _, w := range winners {
		receipt, err := s.ledger.Transfer(ctx, s.escrow, w.AccountID, share)
		s.recordTransfer(ctx, audit.KindPayout, &shortID, s.escrow, w.AccountID, share, receipt, err, w.AccountID)
		if err != nil {
			s.logger.Error().Err(err).
				Str("shortId", shortID).
				Str("account", w.AccountID).
				Str("amount", share.String()).
				Msg("payout transfer failed, caller must retry")
			result.Failed = append(result.Failed, TransferFailure{AccountID: w.AccountID, Amount: share, Reason: err.Error()})
			continue
		}
		result.Receipts = append(result.Receipts, receipt)
		s.notifier.NotifyPlayer(w.AccountID, fmt.Sprintf("You won %s in game %s!", share.String(), shortID))
	}
	s.notifier.RefreshLobby(shortID)
	return result, nil
}

// RefundResult lists successful refunds and the players still owed.
type RefundResult struct {
	Session  *domainGame.Session       `json:"session"`
	Receipts []*ledger.TransferReceipt `json:"receipts"`
	Failed   []TransferFailure         `json:"failed,omitempty"`
}

// Cancel is Refund gated by "caller is the creator and the session is
// still waiting".
func (s *Service) Cancel(ctx context.Context, shortID, callerID string) (*RefundResult, error) {
	sess, err := s.repo.GetByShortID(ctx, shortID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, domainGame.ErrNotFound
	}
	if c := sess.Creator(); c == nil || c.AccountID != callerID {
		return nil, domainGame.ErrNotCreator
	}
	if sess.Status != domainGame.StatusWaiting {
		return nil, domainGame.ErrWrongStatus
	}
	return s.refund(ctx, shortID, callerID)
}

// Refund cancels the session and returns every paid player's stake from
// escrow. Re-invoking after a partial failure only re-attempts players
// still flagged paid; a session with zero paid players refunds trivially.
func (s *Service) Refund(ctx context.Context, shortID string) (*RefundResult, error) {
	return s.refund(ctx, shortID, "operator")
}

func (s *Service) refund(ctx context.Context, shortID, actor string) (*RefundResult, error) {
	// Flip to CANCELLED first: reversing a decided cancellation would be
	// worse than a delayed refund, and the paid flags track what is owed.
	updated, err := s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
		return cur.ApplyCancelled()
	})
	if err != nil {
		return nil, err
	}

	result := &RefundResult{Session: updated}
	for _, p := range updated.PaidPlayers() {
		receipt, err := s.ledger.Transfer(ctx, s.escrow, p.AccountID, updated.Wager)
		s.recordTransfer(ctx, audit.KindRefund, &shortID, s.escrow, p.AccountID, updated.Wager, receipt, err, actor)
		if err != nil {
			s.logger.Error().Err(err).
				Str("shortId", shortID).
				Str("account", p.AccountID).
				Msg("refund transfer failed, caller must retry")
			result.Failed = append(result.Failed, TransferFailure{AccountID: p.AccountID, Amount: updated.Wager, Reason: err.Error()})
			continue
		}
		result.Receipts = append(result.Receipts, receipt)
		accountID := p.AccountID
		if result.Session, err = s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
			return cur.MarkRefunded(accountID)
		}); err != nil {
			s.logger.Warn().Err(err).Str("shortId", shortID).Str("account", accountID).Msg("failed to clear paid flag after refund")
			result.Session = updated
		}
		s.notifier.NotifyPlayer(accountID, fmt.Sprintf("Game %s was cancelled, your %s stake was refunded.", shortID, updated.Wager.String()))
	}
	s.notifier.RefreshLobby(shortID)
	return result, nil
}

// AdminResolve is the single escape hatch from the disputed state: it
// records the named winner, completes the session and immediately runs the
// payout. The caller's authority is checked by the calling layer.
func (s *Service) AdminResolve(ctx context.Context, shortID, winnerIdentifier string) (*PayoutResult, error) {
	_, err := s.repo.Update(ctx, shortID, func(cur *domainGame.Session) error {
		w, err := cur.ParseWinner(winnerIdentifier)
		if err != nil {
			return err
		}
		return cur.ApplyAdminResolve(w, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("shortId", shortID).Str("winner", winnerIdentifier).Msg("dispute resolved by admin")
	return s.Payout(ctx, shortID)
}

// recordTransfer appends one audit entry per ledger call attempt.
func (s *Service) recordTransfer(ctx context.Context, kind audit.Kind, shortID *string, from, to string, amount decimal.Decimal, receipt *ledger.TransferReceipt, transferErr error, actor string) {
	entry := &audit.Entry{
		EntryID:     uuid.New(),
		Kind:        kind,
		ShortID:     shortID,
		FromAccount: from,
		ToAccount:   to,
		Amount:      amount,
		Outcome:     audit.OutcomeOK,
		Actor:       actor,
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
	s.auditSvc.Record(ctx, entry)
}

// compensate returns a collected stake that has no matching player record.
func (s *Service) compensate(ctx context.Context, kind audit.Kind, shortID *string, accountID string, amount decimal.Decimal, actor string) {
	receipt, err := s.ledger.Transfer(ctx, s.escrow, accountID, amount)
	s.recordTransfer(ctx, kind, shortID, s.escrow, accountID, amount, receipt, err, actor)
	if err != nil {
		s.logger.Error().Err(err).
			Str("account", accountID).
			Str("amount", amount.String()).
			Msg("compensating refund failed, stake stranded in escrow")
	}
}
