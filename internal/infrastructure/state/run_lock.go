package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/lite-lake/infra-cfdns/internal/domain"
)

// RunLock keeps scheduled runs from overlapping. The lock file carries no
// data and is left in place after Release.
type RunLock struct {
	path  string
	flock *flock.Flock
}

func NewRunLock(path string) *RunLock {
	return &RunLock{
		path:  path,
		flock: flock.New(path),
	}
}

func (l *RunLock) Path() string {
	return l.path
}

// Acquire takes the lock without waiting. It fails with domain.ErrRunLocked
// when another process holds it.
func (l *RunLock) Acquire() error {
	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating lock directory: %w", err)
		}
	}
	locked, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("acquiring lock %s: %w", l.path, err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", domain.ErrRunLocked, l.path)
	}
	return nil
}

func (l *RunLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing lock %s: %w", l.path, err)
	}
	return nil
}
