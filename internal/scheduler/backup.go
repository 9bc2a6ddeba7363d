package scheduler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BackupSessionsFile copies the sessions file into dir, one snapshot per
// day. A missing sessions file is not an error (nothing to back up yet).
func BackupSessionsFile(sessionsPath, dir string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		raw, err := os.ReadFile(sessionsPath)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return fmt.Errorf("read sessions file: %w", err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure backup dir: %w", err)
		}
		name := fmt.Sprintf("sessions-%s.json", time.Now().UTC().Format("2006-01-02"))
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0o644); err != nil {
			return fmt.Errorf("write backup: %w", err)
		}
		return nil
	}
}
