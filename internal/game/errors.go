package game

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("invalid request")
	ErrUnauthorized = errors.New("unknown session")
	ErrForbidden    = errors.New("operation not permitted for this role")
	ErrRateLimited  = errors.New("too many requests, slow down")
	ErrUpstream     = errors.New("completion provider failed")
	ErrConfig       = errors.New("level configuration error")
	ErrStorage      = errors.New("storage failure")
)

// LevelLockedError rejects a set-level above the unlock ceiling and carries
// the ceiling so the caller can hint at how far the player may go.
type LevelLockedError struct {
	Requested   int
	MaxUnlocked int
}

func (e *LevelLockedError) Error() string {
	return fmt.Sprintf("level %d is locked, highest available is %d", e.Requested, e.MaxUnlocked)
}

func (e *LevelLockedError) Unwrap() error { return ErrValidation }

// wrapStorage tags unexpected store errors so the transport layer can map
// them, while letting taxonomy errors raised inside an upsert pass through.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrValidation, ErrUnauthorized, ErrForbidden, ErrRateLimited, ErrUpstream, ErrConfig} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", ErrStorage, err)
}
