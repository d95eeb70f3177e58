package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodes(t *testing.T) {
	t.Run("wrapped errors keep their code through fmt wrapping", func(t *testing.T) {
		cause := errors.New("dial tcp: refused")
		err := fmt.Errorf("register: %w", Wrap(cause, CodeInternal, "database error"))

		assert.True(t, HasCode(err, CodeInternal))
		assert.False(t, HasCode(err, CodeConflict))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("message falls back for foreign errors", func(t *testing.T) {
		assert.Equal(t, "fallback", Message(errors.New("boom"), "fallback"))
		assert.Equal(t, "taken", Message(New(CodeConflict, "taken"), "fallback"))
	})

	t.Run("error string includes cause", func(t *testing.T) {
		err := Wrap(errors.New("eof"), CodeBadGateway, "send failed")
		require.EqualError(t, err, "send failed: eof")
		require.EqualError(t, New(CodeValidation, "bad email"), "bad email")
	})
}
