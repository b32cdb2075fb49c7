package game

import (
	"errors"
	"fmt"
	"testing"

	"github.com/tolarian/cardtable-backend/pkg/types"
)

func TestJoin_FirstJoinDefaults(t *testing.T) {
	r := NewRoom("ABCDEF12")

	res := r.Join("conn-1", types.PlayerInfo{ID: "p1", Name: "Teysa", Pronouns: "she/her"})
	if res.Reconnected {
		t.Fatalf("first join reported as reconnect")
	}
	p := res.Player
	if p.TurnOrder != 1 {
		t.Fatalf("turn order: got %d, want 1", p.TurnOrder)
	}
	if p.Life != StartingLife {
		t.Fatalf("life: got %d, want %d", p.Life, StartingLife)
	}
	if p.Poison != 0 || p.Rad != 0 || p.Experience != 0 || p.Energy != 0 || p.Storm != 0 {
		t.Fatalf("counters not zeroed: %+v", p)
	}
	if !p.AudioEnabled || !p.VideoEnabled {
		t.Fatalf("media flags should default to enabled")
	}
}

func TestJoin_TurnOrderIsPreJoinCountPlusOne(t *testing.T) {
	r := NewRoom("ABCDEF12")
	for i := 1; i <= 4; i++ {
		res := r.Join(fmt.Sprintf("conn-%d", i), types.PlayerInfo{ID: fmt.Sprintf("p%d", i), Name: "x"})
		if res.Player.TurnOrder != i {
			t.Fatalf("player %d: turn order %d", i, res.Player.TurnOrder)
		}
	}
}

func TestJoin_BlankNameGetsPlaceholder(t *testing.T) {
	orig := placeholderName
	placeholderName = func() string { return "Swift Sphinx" }
	defer func() { placeholderName = orig }()

	cases := []struct {
		name string
		in   string
	}{
		{name: "empty", in: ""},
		{name: "whitespace", in: "   \t"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRoom("ABCDEF12")
			res := r.Join("c1", types.PlayerInfo{ID: "p1", Name: tc.in, Pronouns: "they/them"})
			if res.Player.Name != "Swift Sphinx" {
				t.Fatalf("name: got %q", res.Player.Name)
			}
			if res.Player.Pronouns != "" {
				t.Fatalf("pronouns should be cleared, got %q", res.Player.Pronouns)
			}
		})
	}
}

func TestJoin_ReconnectPreservesEverything(t *testing.T) {
	r := NewRoom("ABCDEF12")
	r.Join("c1", types.PlayerInfo{ID: "p1", Name: "Teysa", Pronouns: "she/her"})
	r.Join("c2", types.PlayerInfo{ID: "p2", Name: "Niv"})

	p := r.PlayerByID("p1")
	p.Life = 27
	p.Poison = 3
	p.AudioEnabled = false
	before := *p

	r.DisconnectConn("c1")
	res := r.Join("c3", types.PlayerInfo{ID: "p1", Name: "Different Name", Pronouns: "xe/xem"})

	if !res.Reconnected {
		t.Fatalf("expected reconnect")
	}
	after := res.Player
	if after.ConnID != "c3" {
		t.Fatalf("conn id not rebound: %q", after.ConnID)
	}
	if after.Name != before.Name || after.Pronouns != before.Pronouns {
		t.Fatalf("identity changed on reconnect: %+v", after)
	}
	if after.Life != 27 || after.Poison != 3 || after.AudioEnabled {
		t.Fatalf("counters/media reset on reconnect: %+v", after)
	}
	if after.TurnOrder != before.TurnOrder {
		t.Fatalf("turn order reassigned: %d -> %d", before.TurnOrder, after.TurnOrder)
	}
	if len(r.Players) != 2 {
		t.Fatalf("duplicate player entry: %d players", len(r.Players))
	}
}

func TestRemove_KeepsTurnPointerInRange(t *testing.T) {
	cases := []struct {
		name        string
		pointer     int
		remove      string
		wantPointer int
	}{
		{name: "remove before pointer shifts it back", pointer: 2, remove: "p1", wantPointer: 1},
		{name: "remove at pointer keeps index", pointer: 1, remove: "p2", wantPointer: 1},
		{name: "remove last while pointed at wraps", pointer: 2, remove: "p3", wantPointer: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRoom("ABCDEF12")
			r.Join("c1", types.PlayerInfo{ID: "p1", Name: "a"})
			r.Join("c2", types.PlayerInfo{ID: "p2", Name: "b"})
			r.Join("c3", types.PlayerInfo{ID: "p3", Name: "c"})
			r.TurnPointer = tc.pointer

			if !r.Remove(tc.remove) {
				t.Fatalf("remove failed")
			}
			if r.TurnPointer != tc.wantPointer {
				t.Fatalf("pointer: got %d, want %d", r.TurnPointer, tc.wantPointer)
			}
			if len(r.Players) > 0 && r.TurnPointer >= len(r.Players) {
				t.Fatalf("pointer %d out of range for %d players", r.TurnPointer, len(r.Players))
			}
		})
	}
}

func TestAdvanceTurn_CyclesThroughPlayers(t *testing.T) {
	r := NewRoom("ABCDEF12")
	r.Join("c1", types.PlayerInfo{ID: "p1", Name: "a"})
	r.Join("c2", types.PlayerInfo{ID: "p2", Name: "b"})
	r.Join("c3", types.PlayerInfo{ID: "p3", Name: "c"})

	want := []int{1, 2, 0, 1, 2, 0}
	for i, expected := range want {
		ts, err := r.AdvanceTurn()
		if err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
		if ts.TurnPlayer != expected {
			t.Fatalf("advance %d: turn player %d, want %d", i, ts.TurnPlayer, expected)
		}
		if ts.Turn != i+1 {
			t.Fatalf("advance %d: turn counter %d, want %d", i, ts.Turn, i+1)
		}
		if ts.Phase != PhaseBegin {
			t.Fatalf("advance %d: phase %q, want BEGIN", i, ts.Phase)
		}
	}
}

func TestAdvanceTurn_EmptyRoomErrors(t *testing.T) {
	r := NewRoom("ABCDEF12")
	_, err := r.AdvanceTurn()
	if !errors.Is(err, ErrNoPlayers) {
		t.Fatalf("want ErrNoPlayers, got %v", err)
	}
}

func TestStart_IsOneWay(t *testing.T) {
	r := NewRoom("ABCDEF12")
	if err := r.Start(); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("want ErrAlreadyStarted, got %v", err)
	}
}

func TestSetMedia(t *testing.T) {
	r := NewRoom("ABCDEF12")
	r.Join("c1", types.PlayerInfo{ID: "p1", Name: "a"})

	if p := r.SetMedia("c1", MediaAudio, false); p == nil || p.AudioEnabled {
		t.Fatalf("audio toggle not applied")
	}
	if p := r.SetMedia("c1", MediaVideo, false); p == nil || p.VideoEnabled {
		t.Fatalf("video toggle not applied")
	}
	if p := r.SetMedia("c1", "hologram", false); p != nil {
		t.Fatalf("unknown kind should be rejected")
	}
	if p := r.SetMedia("ghost", MediaAudio, false); p != nil {
		t.Fatalf("unknown conn should be rejected")
	}
}

func TestSanitizedPlayers_EscapesNames(t *testing.T) {
	r := NewRoom("ABCDEF12")
	r.Join("c1", types.PlayerInfo{ID: "p1", Name: "<script>alert(1)</script>", Pronouns: `"they"`})

	views := r.SanitizedPlayers()
	if len(views) != 1 {
		t.Fatalf("want 1 view, got %d", len(views))
	}
	if views[0].Name != "&lt;script&gt;alert(1)&lt;/script&gt;" {
		t.Fatalf("name not escaped: %q", views[0].Name)
	}
	if views[0].Pronouns != "&quot;they&quot;" {
		t.Fatalf("pronouns not escaped: %q", views[0].Pronouns)
	}
	// Raw value stays untouched internally.
	if r.PlayerByID("p1").Name != "<script>alert(1)</script>" {
		t.Fatalf("raw name mutated")
	}
}
