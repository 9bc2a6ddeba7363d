package session

import (
	"time"

	"github.com/google/uuid"

	"gandalf-gate/internal/levels"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type LevelStat struct {
	PromptsAttempted int        `json:"promptsAttempted"`
	CompletedAt      *time.Time `json:"completedAt"`
}

// PlayerState carries the fields that only exist on user-role sessions.
// Admin sessions have a nil Player.
type PlayerState struct {
	CurrentLevel  int                `json:"currentLevel"`
	LevelWords    map[int]string     `json:"levelWords"`
	LevelStats    map[int]*LevelStat `json:"levelStats"`
	TotalPrompts  int                `json:"totalPrompts"`
	LastRequestAt *time.Time         `json:"lastRequestAt"`
}

type Session struct {
	ID        string       `json:"sessionId"`
	Username  string       `json:"username"`
	Role      Role         `json:"role"`
	CreatedAt time.Time    `json:"createdAt"`
	Player    *PlayerState `json:"player,omitempty"`
}

func NewAdmin(username string, now time.Time) Session {
	return Session{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      RoleAdmin,
		CreatedAt: now,
	}
}

// NewPlayer creates a user session at level 1 with zeroed stats for all
// levels and the given codename stored for level 1.
func NewPlayer(username, levelWord string, now time.Time) Session {
	stats := make(map[int]*LevelStat, levels.Count)
	for lvl := 1; lvl <= levels.Count; lvl++ {
		stats[lvl] = &LevelStat{}
	}
	return Session{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      RoleUser,
		CreatedAt: now,
		Player: &PlayerState{
			CurrentLevel: 1,
			LevelWords:   map[int]string{1: levelWord},
			LevelStats:   stats,
			TotalPrompts: 0,
		},
	}
}

// HighestCleared returns the highest level with a recorded completion, or 0.
func (p *PlayerState) HighestCleared() int {
	highest := 0
	for lvl, st := range p.LevelStats {
		if st != nil && st.CompletedAt != nil && lvl > highest {
			highest = lvl
		}
	}
	return highest
}

// MaxUnlocked is the furthest level the player may move to.
func (p *PlayerState) MaxUnlocked() int {
	max := p.HighestCleared() + 1
	if max > levels.Count {
		max = levels.Count
	}
	return max
}

// MarkCompleted records a completion timestamp for the level, first time
// only. Returns true when the level was newly cleared.
func (p *PlayerState) MarkCompleted(levelID int, at time.Time) bool {
	st := p.LevelStats[levelID]
	if st == nil {
		st = &LevelStat{}
		p.LevelStats[levelID] = st
	}
	if st.CompletedAt != nil {
		return false
	}
	t := at
	st.CompletedAt = &t
	return true
}
