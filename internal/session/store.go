package session

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog/log"
)

// Store is the only way session records are read or written.
type Store interface {
	// Get returns the session with the given id, or ok=false.
	Get(id string) (Session, bool, error)
	// Upsert applies fn to the current record (nil if absent) and persists
	// the result. fn returning nil removes the record; fn returning an error
	// aborts with no state change. All Upsert calls, across all sessions,
	// run strictly one at a time.
	Upsert(id string, fn func(cur *Session) (*Session, error)) (Session, error)
	// ListByRole returns a snapshot of all records with the given role.
	ListByRole(role Role) ([]Session, error)
}

// FileStore keeps the whole session map in a single JSON file. Every write
// re-reads the file, mutates one entry and writes the full map back through
// a temp-file rename, so a crash mid-write never leaves a torn file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

func (s *FileStore) Get(id string) (Session, bool, error) {
	m, err := s.load()
	if err != nil {
		return Session{}, false, err
	}
	sess, ok := m[id]
	return sess, ok, nil
}

func (s *FileStore) Upsert(id string, fn func(cur *Session) (*Session, error)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return Session{}, err
	}
	var cur *Session
	if existing, ok := m[id]; ok {
		cp := existing
		cur = &cp
	}
	next, err := fn(cur)
	if err != nil {
		return Session{}, err
	}
	if next == nil {
		delete(m, id)
		if err := s.save(m); err != nil {
			return Session{}, err
		}
		return Session{}, nil
	}
	m[id] = *next
	if err := s.save(m); err != nil {
		return Session{}, err
	}
	return *next, nil
}

func (s *FileStore) ListByRole(role Role) ([]Session, error) {
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]Session, 0, len(m))
	for _, sess := range m {
		if sess.Role == role {
			out = append(out, sess)
		}
	}
	return out, nil
}

// load reads the full session map. A missing file is a cold start; a file
// that fails to decode degrades to an empty map with a logged warning.
func (s *FileStore) load() (map[string]Session, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Session{}, nil
		}
		return nil, fmt.Errorf("open: %w", err)
	}
	defer func(f *os.File) {
		err := f.Close()
		if err != nil {
		}
	}(f)
	var m map[string]Session
	dec := json.NewDecoder(f)
	if err := dec.Decode(&m); err != nil {
		if err != io.EOF {
			log.Warn().Err(err).Str("path", s.path).Msg("sessions file unreadable, starting from empty store")
		}
		return map[string]Session{}, nil
	}
	if m == nil {
		m = map[string]Session{}
	}
	return m, nil
}

func (s *FileStore) save(m map[string]Session) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "sessions-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("encode: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("close temp: %w", err)
	}
	// The rename is the only visible state transition.
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
