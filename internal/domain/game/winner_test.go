package game

import (
	"encoding/json"
	"testing"
)

func TestWinnerJSONRoundTrip(t *testing.T) {
	cases := []Winner{
		{},
		SideWinner(SideB),
		PlayerWinner("alice"),
	}
	for _, w := range cases {
		data, err := json.Marshal(w)
		if err != nil {
			t.Fatalf("marshal %s: %v", w, err)
		}
		var back Winner
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != w {
			t.Fatalf("round trip changed winner: %s -> %s", w, back)
		}
	}
}

func TestWinnerNoneMarshalsAsNull(t *testing.T) {
	data, err := json.Marshal(Winner{})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "null" {
		t.Fatalf("expected null, got %s", data)
	}
}

func TestWinnerParts(t *testing.T) {
	kind, side, player := SideWinner(SideA).Parts()
	if kind == "" || side == nil || *side != SideA || player != nil {
		t.Fatalf("unexpected parts: %q %v %v", kind, side, player)
	}
	back, err := WinnerFromParts(kind, side, player)
	if err != nil {
		t.Fatal(err)
	}
	if back != SideWinner(SideA) {
		t.Fatalf("parts round trip changed winner: %s", back)
	}

	if _, err := WinnerFromParts("SIDE", nil, nil); err == nil {
		t.Fatal("expected error for SIDE kind without side value")
	}
	if _, err := WinnerFromParts("bogus", nil, nil); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
