package locking

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndUnlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.lock")

	l, err := Acquire(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.FileExists(t, path)

	require.NoError(t, l.Unlock())
	assert.NoFileExists(t, path)
	require.NoError(t, l.Unlock(), "double unlock is harmless")
}

func TestAcquireContention(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.lock")

	held, err := Acquire(context.Background(), path, Options{})
	require.NoError(t, err)
	defer func() { _ = held.Unlock() }()

	_, err = Acquire(context.Background(), path, Options{Attempts: 3, Backoff: time.Millisecond})
	var cerr *ContentionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, 3, cerr.Attempts)
	assert.Equal(t, path, cerr.Path)
}

func TestAcquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.lock")

	held, err := Acquire(context.Background(), path, Options{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		l, err := Acquire(context.Background(), path, Options{Attempts: 50, Backoff: time.Millisecond})
		if err == nil {
			err = l.Unlock()
		}
		done <- err
	}()

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, held.Unlock())
	require.NoError(t, <-done)
}

func TestAcquireHonorsCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.lock")
	held, err := Acquire(context.Background(), path, Options{})
	require.NoError(t, err)
	defer func() { _ = held.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = Acquire(ctx, path, Options{Attempts: 1000, Backoff: 5 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestTryAcquire(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.lock")
	require.NoError(t, os.WriteFile(path, []byte("1"), 0o644))

	_, err := TryAcquire(context.Background(), path)
	var cerr *ContentionError
	assert.ErrorAs(t, err, &cerr)
}
