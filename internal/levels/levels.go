package levels

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

// Count is the fixed number of levels in the game.
const Count = 8

var passwordPattern = regexp.MustCompile(`^[A-Za-z]+$`)

type Level struct {
	ID           int    `json:"id"`
	Password     string `json:"password"`
	SystemPrompt string `json:"systemPrompt"`
}

type levelsFile struct {
	Levels []Level `json:"levels"`
}

// Registry holds the validated level configuration, immutable after Load.
type Registry struct {
	levels []Level
}

// Load reads and validates the level configuration. Any violation is an
// error: the server must not start with a broken level set.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read levels file: %w", err)
	}
	var doc levelsFile
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse levels file: %w", err)
	}
	return New(doc.Levels)
}

// New validates a level set directly (used by Load and by tests).
func New(entries []Level) (*Registry, error) {
	if len(entries) != Count {
		return nil, fmt.Errorf("levels config must contain exactly %d levels, got %d", Count, len(entries))
	}
	ls := make([]Level, len(entries))
	copy(ls, entries)
	sort.Slice(ls, func(i, j int) bool { return ls[i].ID < ls[j].ID })
	for i, l := range ls {
		if l.ID != i+1 {
			return nil, fmt.Errorf("level ids must be exactly 1..%d, got id %d at position %d", Count, l.ID, i)
		}
		if l.Password == "" {
			return nil, fmt.Errorf("level %d: empty password", l.ID)
		}
		if l.Password != strings.TrimSpace(l.Password) {
			return nil, fmt.Errorf("level %d: password has leading or trailing whitespace", l.ID)
		}
		if !passwordPattern.MatchString(l.Password) {
			return nil, fmt.Errorf("level %d: password must contain letters only", l.ID)
		}
		if strings.TrimSpace(l.SystemPrompt) == "" {
			return nil, fmt.Errorf("level %d: empty system prompt", l.ID)
		}
	}
	return &Registry{levels: ls}, nil
}

// Lookup returns the level with the given id. Callers clamp ids to [1,Count]
// first, so a miss means the registry itself is broken.
func (r *Registry) Lookup(id int) (Level, bool) {
	if id < 1 || id > len(r.levels) {
		return Level{}, false
	}
	return r.levels[id-1], true
}

// All returns a copy of the level set, ordered by id.
func (r *Registry) All() []Level {
	out := make([]Level, len(r.levels))
	copy(out, r.levels)
	return out
}
