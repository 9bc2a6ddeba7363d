package session

import (
	"testing"
	"time"

	"gandalf-gate/internal/levels"
)

func TestNewPlayer_Initialization(t *testing.T) {
	now := time.Unix(100, 0).UTC()
	s := NewPlayer("frodo", "Lantern", now)

	if s.ID == "" {
		t.Fatalf("no session id")
	}
	if s.Role != RoleUser || s.Player == nil {
		t.Fatalf("player session malformed: %+v", s)
	}
	if s.Player.CurrentLevel != 1 {
		t.Fatalf("start level = %d", s.Player.CurrentLevel)
	}
	if s.Player.LevelWords[1] != "Lantern" {
		t.Fatalf("level 1 word = %q", s.Player.LevelWords[1])
	}
	if len(s.Player.LevelStats) != levels.Count {
		t.Fatalf("stats for %d levels", len(s.Player.LevelStats))
	}
	for lvl, st := range s.Player.LevelStats {
		if st.PromptsAttempted != 0 || st.CompletedAt != nil {
			t.Fatalf("level %d stats not zeroed: %+v", lvl, st)
		}
	}
}

func TestNewAdmin_HasNoPlayerState(t *testing.T) {
	s := NewAdmin("admin", time.Now())
	if s.Role != RoleAdmin || s.Player != nil {
		t.Fatalf("admin session malformed: %+v", s)
	}
}

func TestHighestClearedAndCeiling(t *testing.T) {
	s := NewPlayer("frodo", "Lantern", time.Now())
	p := s.Player

	if p.HighestCleared() != 0 || p.MaxUnlocked() != 1 {
		t.Fatalf("fresh player: highest=%d max=%d", p.HighestCleared(), p.MaxUnlocked())
	}

	now := time.Unix(500, 0)
	for lvl := 1; lvl <= 3; lvl++ {
		if !p.MarkCompleted(lvl, now) {
			t.Fatalf("level %d not newly cleared", lvl)
		}
	}
	if p.HighestCleared() != 3 || p.MaxUnlocked() != 4 {
		t.Fatalf("after 3 clears: highest=%d max=%d", p.HighestCleared(), p.MaxUnlocked())
	}

	for lvl := 1; lvl <= levels.Count; lvl++ {
		p.MarkCompleted(lvl, now)
	}
	if p.MaxUnlocked() != levels.Count {
		t.Fatalf("ceiling above last level: %d", p.MaxUnlocked())
	}
}

func TestMarkCompleted_Idempotent(t *testing.T) {
	s := NewPlayer("frodo", "Lantern", time.Now())
	p := s.Player

	first := time.Unix(1000, 0)
	if !p.MarkCompleted(2, first) {
		t.Fatalf("first completion not recorded")
	}
	if p.MarkCompleted(2, time.Unix(2000, 0)) {
		t.Fatalf("second completion reported as new")
	}
	if got := p.LevelStats[2].CompletedAt; got == nil || !got.Equal(first) {
		t.Fatalf("completion timestamp overwritten: %v", got)
	}
}
