package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	err := New("test error")
	require.NotNil(t, err)
	assert.Equal(t, "test error", err.Error())
}

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(New("cycle"), "remove the self reference")
	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "remove the self reference", hints[0])
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"load", Mark(New("bad json"), ErrLoad), true},
		{"reference", Wrap(Mark(New("missing"), ErrReference), "grounding"), true},
		{"cycle", Mark(New("A -> A"), ErrCycle), true},
		{"other", New("disk full"), false},
		{"std wrapped", fmt.Errorf("outer: %w", Mark(New("x"), ErrCycle)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsFatal(tt.err))
		})
	}
}

func TestNotFound(t *testing.T) {
	err := NewNotFoundError("meaning with tags %v", []string{"a:b"})
	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "a:b")
	assert.False(t, IsNotFoundError(New("other")))
	assert.False(t, IsNotFoundError(nil))
}
