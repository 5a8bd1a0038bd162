// Package locking provides advisory file locks for the shared on-disk
// state that multiple independent processes mutate: pin files and install
// directories under garbage collection.
//
// A lock is an exclusively created marker file next to the guarded
// resource. Acquisition retries with backoff up to a bound and then fails
// with *ContentionError instead of hanging, because this tool runs inside
// time-boxed CI steps.
package locking

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
)

// Defaults for acquisition. Tuned for short critical sections (a rename or
// a directory removal), not long-held leases.
const (
	DefaultAttempts = 10
	DefaultBackoff  = 50 * time.Millisecond
)

// ContentionError reports that the lock stayed held for the whole bounded
// retry window. It is transient: the caller may retry the operation later.
type ContentionError struct {
	Path     string
	Attempts int
}

func (e *ContentionError) Error() string {
	return fmt.Sprintf("lock %s still held after %d attempts", e.Path, e.Attempts)
}

// Lock is a held advisory lock. Release it with Unlock.
type Lock struct {
	path string
}

// Options bounds acquisition. Zero values take the defaults.
type Options struct {
	Attempts int
	Backoff  time.Duration
}

// Acquire takes the lock at path, retrying with linear backoff. It honors
// ctx cancellation between attempts and never blocks past the bound.
func Acquire(ctx context.Context, path string, opts Options) (*Lock, error) {
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = DefaultBackoff
	}

	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			// The owner pid makes a stale lock diagnosable by hand.
			_, _ = f.WriteString(strconv.Itoa(os.Getpid()))
			if cerr := f.Close(); cerr != nil {
				_ = os.Remove(path)
				return nil, cerr
			}
			return &Lock{path: path}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("acquiring lock %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff * time.Duration(i+1)):
		}
	}
	return nil, &ContentionError{Path: path, Attempts: attempts}
}

// TryAcquire attempts the lock exactly once.
func TryAcquire(ctx context.Context, path string) (*Lock, error) {
	return Acquire(ctx, path, Options{Attempts: 1, Backoff: time.Nanosecond})
}

// Unlock releases the lock. Releasing twice is harmless.
func (l *Lock) Unlock() error {
	err := os.Remove(l.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
