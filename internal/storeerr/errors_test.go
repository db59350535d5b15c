package storeerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesWrappedKind(t *testing.T) {
	base := errors.New("missing row")
	err := NotFound("ReadProject", base)

	require.True(t, Is(err, KindNotFound))
	require.False(t, Is(err, KindValidation))
}

func TestIsMatchesThroughFmtWrap(t *testing.T) {
	err := fmt.Errorf("handler: %w", Conflict("CreateProject", errors.New("duplicate path")))
	require.True(t, Is(err, KindConflict))
}

func TestIsFalseForPlainError(t *testing.T) {
	require.False(t, Is(errors.New("plain"), KindFatal))
}

func TestErrorMessageIncludesOp(t *testing.T) {
	err := Validation("CreateProject", errors.New("path is required"))
	require.Equal(t, "CreateProject: path is required", err.Error())
}

func TestErrorUnwrapReturnsUnderlyingError(t *testing.T) {
	base := errors.New("boom")
	err := Transient("ListEvents", base)
	require.ErrorIs(t, err, base)
}
