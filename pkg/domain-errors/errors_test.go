package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapAndInspect(t *testing.T) {
	cause := errors.New("pq: connection refused")
	err := Wrap(cause, CodeInternal, "failed to stage records")

	assert.Equal(t, "failed to stage records: pq: connection refused", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "failed to stage records", MessageOf(err))
	assert.Nil(t, Wrap(nil, CodeInternal, "unused"))
}

func TestHasCodeWalksTheChain(t *testing.T) {
	inner := New(CodeNotFound, "batch not found")
	outer := Wrap(fmt.Errorf("load: %w", inner), CodeConflict, "cannot stage")

	assert.True(t, HasCode(outer, CodeConflict))
	assert.True(t, Is(outer, CodeNotFound))
	assert.False(t, HasCode(outer, CodeTimeout))
	assert.Equal(t, CodeConflict, CodeOf(outer), "outermost code wins")
}

func TestPlainErrorsAreInternal(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Empty(t, MessageOf(err))
	assert.False(t, HasCode(err, CodeInternal))
}
