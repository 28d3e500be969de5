package game

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents game session lifecycle state.
type Status string

const (
	StatusWaiting   Status = "WAITING"
	StatusActive    Status = "ACTIVE"
	StatusVoting    Status = "VOTING"
	StatusCompleted Status = "COMPLETED"
	StatusDisputed  Status = "DISPUTED"
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Team sides for team-mode sessions.
const (
	SideA = 0
	SideB = 1
)

var (
	ErrNotFound      = errors.New("game not found")
	ErrShortIDTaken  = errors.New("short id already taken")
	ErrWrongStatus   = errors.New("operation not allowed in current status")
	ErrSessionFull   = errors.New("game is full")
	ErrAlreadyJoined = errors.New("account already joined")
	ErrNotAPlayer    = errors.New("account is not a player in this game")
	ErrSideFull      = errors.New("requested side has no free slot")
	ErrNotTeamGame   = errors.New("not a team game")
	ErrAlreadyVoted  = errors.New("account already voted this round")
	ErrCreatorLeave  = errors.New("creator cannot leave, cancel instead")
	ErrNotCreator    = errors.New("only the creator may do this")
	ErrInvalidWinner = errors.New("winner does not match game composition")
	ErrNoWinner      = errors.New("no winner recorded")
	ErrConflict      = errors.New("concurrent update lost, retry")
)

// Player is a participant embedded in a Session. Insertion order is join
// order; the player at index 0 is the creator.
type Player struct {
	AccountID string    `json:"accountId"`
	Handle    *string   `json:"handle,omitempty"`
	Side      int       `json:"side"`
	Paid      bool      `json:"paid"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// Vote is one player's judgment on the proposed winner.
type Vote struct {
	VoterID string    `json:"voterId"`
	Approve bool      `json:"approve"`
	CastAt  time.Time `json:"castAt"`
}

// Session is one instance of a wagered game.
type Session struct {
	ID             int64           `json:"id"`
	ShortID        string          `json:"shortId"`
	GameType       string          `json:"gameType"`
	TotalSlots     int             `json:"totalSlots"`
	TeamMode       bool            `json:"teamMode"`
	Wager          decimal.Decimal `json:"wager"`
	Status         Status          `json:"status"`
	Winner         Winner          `json:"winner"`
	Players        []Player        `json:"players"`
	Votes          []Vote          `json:"votes"`
	LobbyChatID    *string         `json:"lobbyChatId,omitempty"`
	LobbyMessageID *string         `json:"lobbyMessageId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	StartedAt      *time.Time      `json:"startedAt,omitempty"`
	CompletedAt    *time.Time      `json:"completedAt,omitempty"`
	Version        int64           `json:"version"`
}

// Creator returns the session creator, or nil for a session whose player
// list is empty (possible after inconsistent stake records, see RefundGame).
func (s *Session) Creator() *Player {
	if len(s.Players) == 0 {
		return nil
	}
	return &s.Players[0]
}

// PlayerByAccount returns the player for the account, or nil.
func (s *Session) PlayerByAccount(accountID string) *Player {
	for i := range s.Players {
		if s.Players[i].AccountID == accountID {
			return &s.Players[i]
		}
	}
	return nil
}

// SideCount returns how many players currently sit on the side.
func (s *Session) SideCount(side int) int {
	n := 0
	for i := range s.Players {
		if s.Players[i].Side == side {
			n++
		}
	}
	return n
}

// SideCapacity returns the slot capacity of one side in team mode.
func (s *Session) SideCapacity() int {
	return s.TotalSlots / 2
}

// IsFull reports whether every slot is occupied.
func (s *Session) IsFull() bool {
	return len(s.Players) >= s.TotalSlots
}

// PaidPlayers returns the players whose stake is currently held in escrow.
func (s *Session) PaidPlayers() []Player {
	var out []Player
	for _, p := range s.Players {
		if p.Paid {
			out = append(out, p)
		}
	}
	return out
}

// Pot returns wager-per-player times the current player count.
func (s *Session) Pot() decimal.Decimal {
	return s.Wager.Mul(decimal.NewFromInt(int64(len(s.Players))))
}

// Winners returns the paid players the recorded winner resolves to.
func (s *Session) Winners() []Player {
	if side, ok := s.Winner.Side(); ok {
		var out []Player
		for _, p := range s.Players {
			if p.Side == side && p.Paid {
				out = append(out, p)
			}
		}
		return out
	}
	if accountID, ok := s.Winner.Player(); ok {
		if p := s.PlayerByAccount(accountID); p != nil {
			return []Player{*p}
		}
	}
	return nil
}

// ApplyJoin appends a player, honoring the chosen side when it has a free
// slot and auto-balancing otherwise. Filling the last slot flips the session
// to ACTIVE in the same mutation so no full-but-waiting state is observable.
func (s *Session) ApplyJoin(p Player, now time.Time) error {
	if s.Status != StatusWaiting {
		return ErrWrongStatus
	}
	if s.IsFull() {
		return ErrSessionFull
	}
	if s.PlayerByAccount(p.AccountID) != nil {
		return ErrAlreadyJoined
	}
	if s.TeamMode {
		if p.Side != SideA && p.Side != SideB {
			p.Side = SideA
		}
		if s.SideCount(p.Side) >= s.SideCapacity() {
			other := 1 - p.Side
			if s.SideCount(other) >= s.SideCapacity() {
				return ErrSessionFull
			}
			p.Side = other
		}
	} else {
		p.Side = SideA
	}
	p.JoinedAt = now
	s.Players = append(s.Players, p)
	if s.IsFull() {
		s.Status = StatusActive
		t := now
		s.StartedAt = &t
	}
	return nil
}

// ApplyLeave removes a non-creator player from a waiting session.
func (s *Session) ApplyLeave(accountID string) error {
	if s.Status != StatusWaiting {
		return ErrWrongStatus
	}
	if s.PlayerByAccount(accountID) == nil {
		return ErrNotAPlayer
	}
	if c := s.Creator(); c != nil && c.AccountID == accountID {
		return ErrCreatorLeave
	}
	out := s.Players[:0]
	for _, p := range s.Players {
		if p.AccountID != accountID {
			out = append(out, p)
		}
	}
	s.Players = out
	return nil
}

// ApplySwitchTeam flips the caller's side when the destination has room.
func (s *Session) ApplySwitchTeam(accountID string) error {
	if s.Status != StatusWaiting {
		return ErrWrongStatus
	}
	if !s.TeamMode {
		return ErrNotTeamGame
	}
	p := s.PlayerByAccount(accountID)
	if p == nil {
		return ErrNotAPlayer
	}
	dest := 1 - p.Side
	if s.SideCount(dest) >= s.SideCapacity() {
		return ErrSideFull
	}
	p.Side = dest
	return nil
}

// ApplyProposal records the creator's winner proposal and opens a voting
// round, clearing any votes from a prior round.
func (s *Session) ApplyProposal(callerID string, w Winner) error {
	if s.Status != StatusActive && s.Status != StatusVoting {
		return ErrWrongStatus
	}
	c := s.Creator()
	if c == nil || c.AccountID != callerID {
		return ErrNotCreator
	}
	if err := s.validateWinner(w); err != nil {
		return err
	}
	s.Status = StatusVoting
	s.Winner = w
	s.Votes = nil
	return nil
}

// ApplyVote appends one vote for the current round.
func (s *Session) ApplyVote(voterID string, approve bool, now time.Time) error {
	if s.Status != StatusVoting {
		return ErrWrongStatus
	}
	if s.PlayerByAccount(voterID) == nil {
		return ErrNotAPlayer
	}
	for _, v := range s.Votes {
		if v.VoterID == voterID {
			return ErrAlreadyVoted
		}
	}
	s.Votes = append(s.Votes, Vote{VoterID: voterID, Approve: approve, CastAt: now})
	return nil
}

// Tally counts approvals and denials for the current round.
func (s *Session) Tally() (approvals, denials int) {
	for _, v := range s.Votes {
		if v.Approve {
			approvals++
		} else {
			denials++
		}
	}
	return approvals, denials
}

// MajorityThreshold returns the strict majority of n players.
func MajorityThreshold(n int) int {
	return n/2 + 1
}

// VoteOutcome is the round state after a tally.
type VoteOutcome string

const (
	VoteOpen      VoteOutcome = "OPEN"
	VoteCompleted VoteOutcome = "COMPLETED"
	VoteDisputed  VoteOutcome = "DISPUTED"
)

// SettleVotes applies the majority rule to the current tally, flipping the
// session to COMPLETED or DISPUTED when a threshold is reached. Ties and
// sub-threshold tallies leave the round open.
func (s *Session) SettleVotes(now time.Time) VoteOutcome {
	approvals, denials := s.Tally()
	threshold := MajorityThreshold(len(s.Players))
	switch {
	case approvals >= threshold:
		s.Status = StatusCompleted
		t := now
		s.CompletedAt = &t
		return VoteCompleted
	case denials >= threshold:
		s.Status = StatusDisputed
		return VoteDisputed
	default:
		return VoteOpen
	}
}

// ApplyAdminResolve forces a disputed session to COMPLETED with the given
// winner. The caller's authority is the calling layer's concern.
func (s *Session) ApplyAdminResolve(w Winner, now time.Time) error {
	if s.Status != StatusDisputed {
		return ErrWrongStatus
	}
	if err := s.validateWinner(w); err != nil {
		return err
	}
	s.Winner = w
	s.Status = StatusCompleted
	t := now
	s.CompletedAt = &t
	return nil
}

// ApplyCancelled moves the session to CANCELLED. Only waiting and active
// sessions can be cancelled; an already cancelled session is accepted so
// that refund retries are idempotent.
func (s *Session) ApplyCancelled() error {
	switch s.Status {
	case StatusWaiting, StatusActive, StatusCancelled:
		s.Status = StatusCancelled
		return nil
	default:
		return ErrWrongStatus
	}
}

// MarkRefunded clears the paid flag once a player's stake has left escrow,
// so a refund retry only re-attempts players still flagged paid.
func (s *Session) MarkRefunded(accountID string) error {
	p := s.PlayerByAccount(accountID)
	if p == nil {
		return ErrNotAPlayer
	}
	p.Paid = false
	return nil
}

func (s *Session) validateWinner(w Winner) error {
	if side, ok := w.Side(); ok {
		if !s.TeamMode {
			return ErrNotTeamGame
		}
		if side != SideA && side != SideB {
			return ErrInvalidWinner
		}
		return nil
	}
	if accountID, ok := w.Player(); ok {
		if s.PlayerByAccount(accountID) == nil {
			return ErrInvalidWinner
		}
		return nil
	}
	return ErrNoWinner
}

// ParseWinner resolves an admin-supplied identifier against the session:
// "0"/"1" (or "a"/"b") name a side in team mode, anything else must be a
// player account id.
func (s *Session) ParseWinner(identifier string) (Winner, error) {
	if s.TeamMode {
		switch identifier {
		case "0", "a", "A":
			return SideWinner(SideA), nil
		case "1", "b", "B":
			return SideWinner(SideB), nil
		}
	}
	if s.PlayerByAccount(identifier) != nil {
		return PlayerWinner(identifier), nil
	}
	return Winner{}, ErrInvalidWinner
}

// SplitPot divides the pot evenly across winners, truncating to minor
// units. The remainder of an indivisible pot stays in escrow.
func SplitPot(pot decimal.Decimal, winners int) decimal.Decimal {
	if winners <= 0 {
		return decimal.Zero
	}
	units := pot.Shift(2).IntPart()
	return decimal.New(units/int64(winners), -2)
}

// Clone returns a deep copy, so stores can hand out sessions without
// aliasing their own state.
func (s *Session) Clone() *Session {
	out := *s
	out.Players = append([]Player(nil), s.Players...)
	out.Votes = append([]Vote(nil), s.Votes...)
	if s.LobbyChatID != nil {
		v := *s.LobbyChatID
		out.LobbyChatID = &v
	}
	if s.LobbyMessageID != nil {
		v := *s.LobbyMessageID
		out.LobbyMessageID = &v
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	for i := range out.Players {
		if h := out.Players[i].Handle; h != nil {
			v := *h
			out.Players[i].Handle = &v
		}
	}
	return &out
}
