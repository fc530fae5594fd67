package segment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	apperrors "github.com/Adithya-Monish-Kumar-K/boolean-search/pkg/errors"
)

const lockFile = ".build.lock"

// DirLock is a cross-process lock held on a data directory while a build
// writes into it, so two indexer runs cannot interleave their files.
type DirLock struct {
	flock  *flock.Flock
	locked bool
}

// NewDirLock creates a lock for dir. The lock file is <dir>/.build.lock.
func NewDirLock(dir string) *DirLock {
	return &DirLock{flock: flock.New(filepath.Join(dir, lockFile))}
}

// Lock waits up to timeout for the lock. It returns ErrIndexLocked when
// another process keeps holding it.
func (l *DirLock) Lock(ctx context.Context, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(l.flock.Path()), 0o755); err != nil {
		return fmt.Errorf("creating lock directory: %w", err)
	}
	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	acquired, err := l.flock.TryLockContext(lockCtx, 100*time.Millisecond)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("%w: %s", apperrors.ErrIndexLocked, l.flock.Path())
		}
		return fmt.Errorf("acquiring build lock: %w", err)
	}
	if !acquired {
		return fmt.Errorf("%w: %s", apperrors.ErrIndexLocked, l.flock.Path())
	}
	l.locked = true
	return nil
}

// Unlock releases the lock. It is safe to call on an unlocked DirLock.
func (l *DirLock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("releasing build lock: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *DirLock) Path() string {
	return l.flock.Path()
}
