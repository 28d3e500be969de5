package game

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newWaitingSession(slots int, teamMode bool) *Session {
	now := time.Now().UTC()
	return &Session{
		ShortID:    "AB23CD",
		GameType:   "pool",
		TotalSlots: slots,
		TeamMode:   teamMode,
		Wager:      decimal.NewFromInt(10),
		Status:     StatusWaiting,
		CreatedAt:  now,
		Version:    1,
		Players: []Player{
			{AccountID: "creator", Side: SideA, Paid: true, JoinedAt: now},
		},
	}
}

func join(t *testing.T, s *Session, accountID string, side int) {
	t.Helper()
	if err := s.ApplyJoin(Player{AccountID: accountID, Side: side, Paid: true}, time.Now().UTC()); err != nil {
		t.Fatalf("join %s: %v", accountID, err)
	}
}

func TestApplyJoinFillsLastSlotActivates(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if s.Status != StatusActive {
		t.Fatalf("expected ACTIVE, got %s", s.Status)
	}
	if s.StartedAt == nil {
		t.Fatal("expected StartedAt set")
	}
}

func TestApplyJoinRejectsDuplicateAndFull(t *testing.T) {
	s := newWaitingSession(2, false)
	if err := s.ApplyJoin(Player{AccountID: "creator"}, time.Now()); !errors.Is(err, ErrAlreadyJoined) {
		t.Fatalf("expected ErrAlreadyJoined, got %v", err)
	}
	join(t, s, "p2", SideA)
	if err := s.ApplyJoin(Player{AccountID: "p3"}, time.Now()); !errors.Is(err, ErrWrongStatus) {
		t.Fatalf("expected ErrWrongStatus for active session, got %v", err)
	}
}

func TestApplyJoinTeamAutoBalance(t *testing.T) {
	s := newWaitingSession(4, true)
	join(t, s, "p2", SideA) // side A now full (capacity 2)
	join(t, s, "p3", SideA) // wants A, must land on B
	if p := s.PlayerByAccount("p3"); p.Side != SideB {
		t.Fatalf("expected auto-balance to side B, got side %d", p.Side)
	}
	join(t, s, "p4", SideB)
	if s.Status != StatusActive {
		t.Fatalf("expected ACTIVE after fourth join, got %s", s.Status)
	}
}

func TestApplyLeave(t *testing.T) {
	s := newWaitingSession(3, false)
	join(t, s, "p2", SideA)
	if err := s.ApplyLeave("creator"); !errors.Is(err, ErrCreatorLeave) {
		t.Fatalf("expected ErrCreatorLeave, got %v", err)
	}
	if err := s.ApplyLeave("ghost"); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("expected ErrNotAPlayer, got %v", err)
	}
	if err := s.ApplyLeave("p2"); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if s.PlayerByAccount("p2") != nil {
		t.Fatal("expected p2 removed")
	}
}

func TestApplySwitchTeam(t *testing.T) {
	s := newWaitingSession(4, true)
	join(t, s, "p2", SideB)
	if err := s.ApplySwitchTeam("p2"); err != nil {
		t.Fatalf("switch: %v", err)
	}
	if p := s.PlayerByAccount("p2"); p.Side != SideA {
		t.Fatalf("expected side A, got %d", p.Side)
	}
	// side A now holds creator and p2, capacity 2
	join(t, s, "p3", SideB)
	if err := s.ApplySwitchTeam("p3"); !errors.Is(err, ErrSideFull) {
		t.Fatalf("expected ErrSideFull, got %v", err)
	}

	solo := newWaitingSession(2, false)
	if err := solo.ApplySwitchTeam("creator"); !errors.Is(err, ErrNotTeamGame) {
		t.Fatalf("expected ErrNotTeamGame, got %v", err)
	}
}

func TestProposalOnlyCreatorAndClearsVotes(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)

	if err := s.ApplyProposal("p2", PlayerWinner("p2")); !errors.Is(err, ErrNotCreator) {
		t.Fatalf("expected ErrNotCreator, got %v", err)
	}
	if err := s.ApplyProposal("creator", PlayerWinner("creator")); err != nil {
		t.Fatalf("propose: %v", err)
	}
	if s.Status != StatusVoting {
		t.Fatalf("expected VOTING, got %s", s.Status)
	}
	if err := s.ApplyVote("p2", false, time.Now()); err != nil {
		t.Fatalf("vote: %v", err)
	}

	// A re-proposal opens a fresh round.
	if err := s.ApplyProposal("creator", PlayerWinner("p2")); err != nil {
		t.Fatalf("re-propose: %v", err)
	}
	if len(s.Votes) != 0 {
		t.Fatalf("expected votes cleared, got %d", len(s.Votes))
	}
}

func TestProposalValidatesWinner(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if err := s.ApplyProposal("creator", PlayerWinner("nobody")); !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("expected ErrInvalidWinner, got %v", err)
	}
	if err := s.ApplyProposal("creator", SideWinner(SideA)); !errors.Is(err, ErrNotTeamGame) {
		t.Fatalf("expected ErrNotTeamGame, got %v", err)
	}
	if err := s.ApplyProposal("creator", Winner{}); !errors.Is(err, ErrNoWinner) {
		t.Fatalf("expected ErrNoWinner, got %v", err)
	}
}

func TestVoteDedupeAndMembership(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if err := s.ApplyProposal("creator", PlayerWinner("creator")); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyVote("stranger", true, time.Now()); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("expected ErrNotAPlayer, got %v", err)
	}
	if err := s.ApplyVote("p2", true, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyVote("p2", false, time.Now()); !errors.Is(err, ErrAlreadyVoted) {
		t.Fatalf("expected ErrAlreadyVoted, got %v", err)
	}
}

func TestMajorityThreshold(t *testing.T) {
	cases := map[int]int{2: 2, 3: 2, 4: 3, 5: 3, 6: 4}
	for n, want := range cases {
		if got := MajorityThreshold(n); got != want {
			t.Fatalf("threshold(%d) = %d, want %d", n, got, want)
		}
	}
}

func TestSettleVotesCompletes(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if err := s.ApplyProposal("creator", PlayerWinner("p2")); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyVote("creator", true, time.Now()); err != nil {
		t.Fatal(err)
	}
	if outcome := s.SettleVotes(time.Now()); outcome != VoteOpen {
		t.Fatalf("one of two approvals should leave round open, got %s", outcome)
	}
	if err := s.ApplyVote("p2", true, time.Now()); err != nil {
		t.Fatal(err)
	}
	if outcome := s.SettleVotes(time.Now()); outcome != VoteCompleted {
		t.Fatalf("expected COMPLETED, got %s", outcome)
	}
	if s.Status != StatusCompleted || s.CompletedAt == nil {
		t.Fatalf("expected completed session, got %s", s.Status)
	}
}

func TestSettleVotesDisputes(t *testing.T) {
	s := newWaitingSession(4, true)
	join(t, s, "p2", SideA)
	join(t, s, "p3", SideB)
	join(t, s, "p4", SideB)
	if err := s.ApplyProposal("creator", SideWinner(SideA)); err != nil {
		t.Fatal(err)
	}
	for i, voter := range []string{"p2", "p3", "p4"} {
		if err := s.ApplyVote(voter, false, time.Now()); err != nil {
			t.Fatal(err)
		}
		outcome := s.SettleVotes(time.Now())
		if i < 2 && outcome != VoteOpen {
			t.Fatalf("vote %d: expected open round, got %s", i, outcome)
		}
		if i == 2 && outcome != VoteDisputed {
			t.Fatalf("expected DISPUTED at third denial, got %s", outcome)
		}
	}
	if s.Status != StatusDisputed {
		t.Fatalf("expected DISPUTED, got %s", s.Status)
	}
}

func TestTwoPlayerTieStaysOpen(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if err := s.ApplyProposal("creator", PlayerWinner("creator")); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyVote("creator", true, time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyVote("p2", false, time.Now()); err != nil {
		t.Fatal(err)
	}
	if outcome := s.SettleVotes(time.Now()); outcome != VoteOpen {
		t.Fatalf("1-1 in a 2 player game must stay open, got %s", outcome)
	}
}

func TestApplyAdminResolve(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if err := s.ApplyAdminResolve(PlayerWinner("p2"), time.Now()); !errors.Is(err, ErrWrongStatus) {
		t.Fatalf("resolve outside DISPUTED must fail, got %v", err)
	}
	s.Status = StatusDisputed
	if err := s.ApplyAdminResolve(PlayerWinner("p2"), time.Now()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if s.Status != StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", s.Status)
	}
	if got, _ := s.Winner.Player(); got != "p2" {
		t.Fatalf("expected winner p2, got %s", got)
	}
}

func TestApplyCancelledIdempotent(t *testing.T) {
	s := newWaitingSession(2, false)
	if err := s.ApplyCancelled(); err != nil {
		t.Fatal(err)
	}
	if err := s.ApplyCancelled(); err != nil {
		t.Fatalf("cancelling a cancelled session must be accepted, got %v", err)
	}
	s.Status = StatusCompleted
	if err := s.ApplyCancelled(); !errors.Is(err, ErrWrongStatus) {
		t.Fatalf("expected ErrWrongStatus for completed session, got %v", err)
	}
}

func TestMarkRefundedAndPaidPlayers(t *testing.T) {
	s := newWaitingSession(2, false)
	join(t, s, "p2", SideA)
	if got := len(s.PaidPlayers()); got != 2 {
		t.Fatalf("expected 2 paid players, got %d", got)
	}
	if err := s.MarkRefunded("p2"); err != nil {
		t.Fatal(err)
	}
	paid := s.PaidPlayers()
	if len(paid) != 1 || paid[0].AccountID != "creator" {
		t.Fatalf("expected only creator paid, got %+v", paid)
	}
}

func TestParseWinner(t *testing.T) {
	team := newWaitingSession(4, true)
	if w, err := team.ParseWinner("a"); err != nil {
		t.Fatal(err)
	} else if side, _ := w.Side(); side != SideA {
		t.Fatalf("expected side A, got %d", side)
	}
	if w, err := team.ParseWinner("1"); err != nil {
		t.Fatal(err)
	} else if side, _ := w.Side(); side != SideB {
		t.Fatalf("expected side B, got %d", side)
	}

	ffa := newWaitingSession(2, false)
	if _, err := ffa.ParseWinner("0"); !errors.Is(err, ErrInvalidWinner) {
		t.Fatalf("side identifier in non-team game must fail, got %v", err)
	}
	if w, err := ffa.ParseWinner("creator"); err != nil {
		t.Fatal(err)
	} else if acc, _ := w.Player(); acc != "creator" {
		t.Fatalf("expected player winner creator, got %s", acc)
	}
}

func TestSplitPot(t *testing.T) {
	pot := decimal.RequireFromString("100.00")
	if got := SplitPot(pot, 3); got.String() != "33.33" {
		t.Fatalf("expected 33.33, got %s", got)
	}
	if got := SplitPot(pot, 4); got.String() != "25" {
		t.Fatalf("expected 25, got %s", got)
	}
	if got := SplitPot(decimal.RequireFromString("0.05"), 2); got.String() != "0.02" {
		t.Fatalf("expected 0.02, got %s", got)
	}
	if got := SplitPot(pot, 0); !got.IsZero() {
		t.Fatalf("expected zero for no winners, got %s", got)
	}
	// Shares never sum above the pot.
	share := SplitPot(pot, 3)
	if share.Mul(decimal.NewFromInt(3)).GreaterThan(pot) {
		t.Fatal("split exceeds pot")
	}
}

func TestPotAndWinners(t *testing.T) {
	s := newWaitingSession(4, true)
	join(t, s, "p2", SideA)
	join(t, s, "p3", SideB)
	join(t, s, "p4", SideB)
	if got := s.Pot().String(); got != "40" {
		t.Fatalf("expected pot 40, got %s", got)
	}
	s.Winner = SideWinner(SideB)
	winners := s.Winners()
	if len(winners) != 2 {
		t.Fatalf("expected 2 winners, got %d", len(winners))
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := newWaitingSession(2, false)
	handle := "alice"
	s.Players[0].Handle = &handle
	cp := s.Clone()
	cp.Players[0].AccountID = "other"
	*cp.Players[0].Handle = "mallory"
	if s.Players[0].AccountID != "creator" || *s.Players[0].Handle != "alice" {
		t.Fatal("clone aliases original players")
	}
}
