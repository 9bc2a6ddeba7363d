package chatlog

import "time"

// Event is one chat exchange, with the level password already redacted.
type Event struct {
	Timestamp    time.Time `json:"ts"`
	SessionID    string    `json:"session_id"`
	Level        int       `json:"level"`
	UserMessage  string    `json:"user_message"`
	Reply        string    `json:"reply"`
	LevelCleared bool      `json:"level_cleared"`
}

type Recorder interface {
	Append(event Event) error
	Load() ([]Event, error)
}
