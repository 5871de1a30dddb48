package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLocksSerializeSameSession(t *testing.T) {
	l := NewSessionLocks()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "s1")
	require.NoError(t, err)

	acquired := make(chan func())
	go func() {
		r, err := l.Acquire(ctx, "s1")
		assert.NoError(t, err)
		acquired <- r
	}()

	select {
	case <-acquired:
		t.Fatal("second turn ran while the first held the session")
	case <-time.After(50 * time.Millisecond):
	}

	other, err := l.Acquire(ctx, "s2")
	require.NoError(t, err, "other sessions are never blocked")
	other()

	release()
	release() // no-op

	select {
	case r := <-acquired:
		r()
	case <-time.After(5 * time.Second):
		t.Fatal("queued turn never acquired the session")
	}
	assert.Equal(t, 0, l.Len())
}

func TestSessionLocksAcquireCanceled(t *testing.T) {
	l := NewSessionLocks()
	release, err := l.Acquire(context.Background(), "s1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, l.Len())
}
