package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestBackupSessionsFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "sessions.json")
	backups := filepath.Join(dir, "backups")

	if err := os.WriteFile(src, []byte(`{"abc":{"sessionId":"abc"}}`), 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	job := BackupSessionsFile(src, backups)
	if err := job(context.Background()); err != nil {
		t.Fatalf("backup: %v", err)
	}

	name := "sessions-" + time.Now().UTC().Format("2006-01-02") + ".json"
	raw, err := os.ReadFile(filepath.Join(backups, name))
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(raw) != `{"abc":{"sessionId":"abc"}}` {
		t.Fatalf("backup content mismatch: %s", raw)
	}
}

func TestBackupSessionsFile_MissingSource(t *testing.T) {
	dir := t.TempDir()
	job := BackupSessionsFile(filepath.Join(dir, "nope.json"), filepath.Join(dir, "backups"))
	if err := job(context.Background()); err != nil {
		t.Fatalf("missing source should be a no-op: %v", err)
	}
}
