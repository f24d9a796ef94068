package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, CanTransition(StatusDraft, StatusConfirmed))
	assert.True(t, CanTransition(StatusDraft, StatusCancelled))
	assert.True(t, CanTransition(StatusConfirmed, StatusCancelled))

	// cancelled is terminal
	assert.False(t, CanTransition(StatusCancelled, StatusConfirmed))
	assert.False(t, CanTransition(StatusCancelled, StatusDraft))

	assert.False(t, CanTransition(StatusConfirmed, StatusDraft))
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusDraft.Valid())
	assert.True(t, StatusConfirmed.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}
