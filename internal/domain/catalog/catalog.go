package catalog

import (
	"errors"
	"sort"
)

var (
	ErrUnknownGameType    = errors.New("unknown game type")
	ErrInvalidPlayerCount = errors.New("player count not allowed for game type")
)

// Game is the static configuration for one playable game type.
type Game struct {
	Type         string `json:"type"`
	Title        string `json:"title"`
	TeamMode     bool   `json:"teamMode"`
	PlayerCounts []int  `json:"playerCounts"`
}

// AllowsPlayerCount reports whether the count is a legal lobby size.
func (g Game) AllowsPlayerCount(n int) bool {
	for _, c := range g.PlayerCounts {
		if c == n {
			return true
		}
	}
	return false
}

// Catalog is a pure lookup over the configured game types.
type Catalog struct {
	games map[string]Game
}

// New builds a catalog, dropping odd player counts from team games so the
// two-even-sides invariant holds by construction.
func New(games []Game) *Catalog {
	m := make(map[string]Game, len(games))
	for _, g := range games {
		if g.TeamMode {
			counts := g.PlayerCounts[:0]
			for _, c := range g.PlayerCounts {
				if c%2 == 0 {
					counts = append(counts, c)
				}
			}
			g.PlayerCounts = counts
		}
		m[g.Type] = g
	}
	return &Catalog{games: m}
}

// Default returns the built-in game set.
func Default() *Catalog {
	return New([]Game{
		{Type: "connectfour", Title: "Connect Four", PlayerCounts: []int{2}},
		{Type: "chess", Title: "Chess", PlayerCounts: []int{2}},
		{Type: "pool", Title: "8-Ball Pool", PlayerCounts: []int{2}},
		{Type: "mariokart", Title: "Mario Kart", PlayerCounts: []int{2, 3, 4}},
		{Type: "rocketleague", Title: "Rocket League", TeamMode: true, PlayerCounts: []int{2, 4, 6}},
	})
}

// Lookup returns the game configuration for the type.
func (c *Catalog) Lookup(gameType string) (Game, error) {
	g, ok := c.games[gameType]
	if !ok {
		return Game{}, ErrUnknownGameType
	}
	return g, nil
}

// Validate checks a game type / player count pair.
func (c *Catalog) Validate(gameType string, playerCount int) (Game, error) {
	g, err := c.Lookup(gameType)
	if err != nil {
		return Game{}, err
	}
	if !g.AllowsPlayerCount(playerCount) {
		return Game{}, ErrInvalidPlayerCount
	}
	return g, nil
}

// Types returns the configured game types in stable order.
func (c *Catalog) Types() []string {
	out := make([]string, 0, len(c.games))
	for t := range c.games {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
