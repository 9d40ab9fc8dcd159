package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelChecks(t *testing.T) {
	wrapped := fmt.Errorf("series abc: %w", ErrNotFound)

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsConflict(fmt.Errorf("occurrence o1: %w", ErrConflict)))
	assert.True(t, IsValidation(fmt.Errorf("bad payload: %w", ErrValidation)))
	assert.True(t, IsUpstream(fmt.Errorf("calendar fetch: %w", ErrUpstream)))
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(ErrUpstream))
	assert.False(t, IsTransient(ErrConflict))
	assert.False(t, IsTransient(ErrValidation))
	assert.False(t, IsTransient(nil))
}
