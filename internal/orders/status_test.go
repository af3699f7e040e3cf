package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(StatusPending, StatusCancelled))
	assert.True(t, CanTransition(StatusPending, StatusFulfilled))

	// terminal states never move
	assert.False(t, CanTransition(StatusCancelled, StatusPending))
	assert.False(t, CanTransition(StatusCancelled, StatusFulfilled))
	assert.False(t, CanTransition(StatusFulfilled, StatusCancelled))
	assert.False(t, CanTransition(StatusFulfilled, StatusPending))

	assert.False(t, CanTransition(StatusPending, StatusPending))
	assert.False(t, CanTransition(Status("bogus"), StatusCancelled))
}
