package repo

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const indexLockRetryDelay = 5 * time.Millisecond

// IndexLock is the scoped guard for the single per-workspace index lock.
// Acquire it with LockIndex and release it with Release on every exit path;
// Release is idempotent so `defer lock.Release()` is always safe even when
// the lock was already released early.
type IndexLock struct {
	path     string
	released bool
}

// LockIndex acquires the workspace index lock (.keel/index.lock). Exactly one
// live lock may exist per workspace; checkout and staging operations serialize
// through it.
//
// If the lock is held by another operation, LockIndex fails fast with
// ErrLockContention when ctx carries no deadline. With a deadline (or
// cancellation) it polls until ctx is done, then reports ErrLockContention.
// It never retries beyond what the caller asked for.
func (r *Repo) LockIndex(ctx context.Context) (*IndexLock, error) {
	lockPath := filepath.Join(r.KeelDir, "index.lock")
	_, hasDeadline := ctx.Deadline()

	for {
		f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			if cerr := f.Close(); cerr != nil {
				os.Remove(lockPath)
				return nil, fmt.Errorf("lock index: close: %w", cerr)
			}
			return &IndexLock{path: lockPath}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("lock index: %w", err)
		}
		if !hasDeadline {
			return nil, fmt.Errorf("lock index at %q: %w", lockPath, ErrLockContention)
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock index at %q: %w", lockPath, ErrLockContention)
		case <-time.After(indexLockRetryDelay):
		}
	}
}

// Release drops the index lock. Safe to call more than once.
func (l *IndexLock) Release() {
	if l == nil || l.released {
		return
	}
	l.released = true
	os.Remove(l.path)
}
