package game

import (
	"encoding/json"
	"fmt"
)

type winnerKind string

const (
	winnerNone   winnerKind = ""
	winnerSide   winnerKind = "SIDE"
	winnerPlayer winnerKind = "PLAYER"
)

// Winner is a tagged union: either a team side or a single player account,
// never both. The zero value means no winner has been recorded.
type Winner struct {
	kind   winnerKind
	side   int
	player string
}

// SideWinner names a team side as the winner.
func SideWinner(side int) Winner {
	return Winner{kind: winnerSide, side: side}
}

// PlayerWinner names a single player as the winner.
func PlayerWinner(accountID string) Winner {
	return Winner{kind: winnerPlayer, player: accountID}
}

// IsZero reports whether no winner is set.
func (w Winner) IsZero() bool {
	return w.kind == winnerNone
}

// Side returns the winning side when the winner is a side.
func (w Winner) Side() (int, bool) {
	if w.kind != winnerSide {
		return 0, false
	}
	return w.side, true
}

// Player returns the winning account when the winner is a single player.
func (w Winner) Player() (string, bool) {
	if w.kind != winnerPlayer {
		return "", false
	}
	return w.player, true
}

func (w Winner) String() string {
	switch w.kind {
	case winnerSide:
		return fmt.Sprintf("side %d", w.side)
	case winnerPlayer:
		return w.player
	default:
		return "none"
	}
}

// Parts decomposes the union for storage. Exactly one of side/player is
// non-nil when kind is non-empty.
func (w Winner) Parts() (kind string, side *int, player *string) {
	switch w.kind {
	case winnerSide:
		s := w.side
		return string(winnerSide), &s, nil
	case winnerPlayer:
		p := w.player
		return string(winnerPlayer), nil, &p
	default:
		return "", nil, nil
	}
}

// WinnerFromParts rebuilds the union from storage columns.
func WinnerFromParts(kind string, side *int, player *string) (Winner, error) {
	switch winnerKind(kind) {
	case winnerNone:
		return Winner{}, nil
	case winnerSide:
		if side == nil {
			return Winner{}, fmt.Errorf("winner kind SIDE without side value")
		}
		return SideWinner(*side), nil
	case winnerPlayer:
		if player == nil {
			return Winner{}, fmt.Errorf("winner kind PLAYER without player value")
		}
		return PlayerWinner(*player), nil
	default:
		return Winner{}, fmt.Errorf("unknown winner kind: %s", kind)
	}
}

type winnerJSON struct {
	Kind   string  `json:"kind"`
	Side   *int    `json:"side,omitempty"`
	Player *string `json:"player,omitempty"`
}

func (w Winner) MarshalJSON() ([]byte, error) {
	if w.kind == winnerNone {
		return []byte("null"), nil
	}
	kind, side, player := w.Parts()
	return json.Marshal(winnerJSON{Kind: kind, Side: side, Player: player})
}

func (w *Winner) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*w = Winner{}
		return nil
	}
	var v winnerJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := WinnerFromParts(v.Kind, v.Side, v.Player)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
