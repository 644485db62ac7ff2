package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	err := New(KindInsufficientInventory, "product %d short by %d", 7, 3)
	assert.Equal(t, KindInsufficientInventory, KindOf(err))
	assert.True(t, IsKind(err, KindInsufficientInventory))
	assert.False(t, IsKind(err, KindConflict))
}

func TestKindOfWrappedChain(t *testing.T) {
	inner := New(KindConflict, "order 12 version mismatch")
	wrapped := fmt.Errorf("transition failed: %w", inner)

	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("row not found")
	err := Wrap(KindNotFound, cause, "order %d", 5)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "order 5")
}
