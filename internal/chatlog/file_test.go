package chatlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "chat.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}

	ev1 := Event{Timestamp: time.Unix(1, 0).UTC(), SessionID: "s1", Level: 1, UserMessage: "hi", Reply: "no"}
	ev2 := Event{Timestamp: time.Unix(2, 0).UTC(), SessionID: "s2", Level: 3, UserMessage: "pw?", Reply: "[REDACTED]", LevelCleared: true}
	if err := rec.Append(ev1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := rec.Append(ev2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	events, err := rec.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2, got %d", len(events))
	}
	if events[0].SessionID != "s1" || events[1].SessionID != "s2" {
		t.Fatalf("order mismatch: %+v", events)
	}
	if !events[1].LevelCleared || events[1].Level != 3 {
		t.Fatalf("event mangled: %+v", events[1])
	}

	// ensure file exists and non-empty
	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}
}
