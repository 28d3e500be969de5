package catalog

import (
	"errors"
	"testing"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	g, err := c.Lookup("rocketleague")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if !g.TeamMode {
		t.Fatal("rocketleague must be a team game")
	}
	if _, err := c.Lookup("tictactoe"); !errors.Is(err, ErrUnknownGameType) {
		t.Fatalf("expected ErrUnknownGameType, got %v", err)
	}
}

func TestValidatePlayerCount(t *testing.T) {
	c := Default()
	if _, err := c.Validate("chess", 2); err != nil {
		t.Fatalf("chess 2: %v", err)
	}
	if _, err := c.Validate("chess", 3); !errors.Is(err, ErrInvalidPlayerCount) {
		t.Fatalf("expected ErrInvalidPlayerCount, got %v", err)
	}
	if _, err := c.Validate("mariokart", 4); err != nil {
		t.Fatalf("mariokart 4: %v", err)
	}
}

func TestNewDropsOddTeamCounts(t *testing.T) {
	c := New([]Game{{
		Type:         "custom",
		Title:        "Custom",
		TeamMode:     true,
		PlayerCounts: []int{2, 3, 4},
	}})
	if _, err := c.Validate("custom", 3); !errors.Is(err, ErrInvalidPlayerCount) {
		t.Fatalf("odd count in a team game must be dropped, got %v", err)
	}
	if _, err := c.Validate("custom", 4); err != nil {
		t.Fatalf("custom 4: %v", err)
	}
}

func TestTypesSorted(t *testing.T) {
	types := Default().Types()
	if len(types) == 0 {
		t.Fatal("expected non-empty types")
	}
	for i := 1; i < len(types); i++ {
		if types[i-1] > types[i] {
			t.Fatalf("types not sorted: %v", types)
		}
	}
}
