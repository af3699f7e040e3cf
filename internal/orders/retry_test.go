package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackoffRetry(t *testing.T) {
	b := Backoff{Attempts: 4, Base: time.Millisecond, Max: 2 * time.Millisecond}

	calls := 0
	err := b.retry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetry_Exhausted(t *testing.T) {
	b := Backoff{Attempts: 3, Base: time.Millisecond, Max: time.Millisecond}

	calls := 0
	sentinel := errors.New("still down")
	err := b.retry(context.Background(), func() error {
		calls++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 3, calls)
}

func TestBackoffRetry_ContextCutsShort(t *testing.T) {
	b := Backoff{Attempts: 100, Base: time.Minute, Max: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := b.retry(ctx, func() error {
		calls++
		return errors.New("down")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
