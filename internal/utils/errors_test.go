package utils

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "plain message",
			err:      NewValidationError("horizon must be positive"),
			expected: "horizon must be positive",
		},
		{
			name:     "formatted message",
			err:      NewValidationErrorf("unknown labor type %q", "XL"),
			expected: `unknown labor type "XL"`,
		},
		{
			name:     "field error",
			err:      NewFieldError("month", "unrecognized month %q", "Smarch"),
			expected: `month: unrecognized month "Smarch"`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
			assert.True(t, IsValidationError(tc.err))
		})
	}
}

func TestIsValidationError_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("row 4: %w", NewFieldError("year", "not an integer"))
	assert.True(t, IsValidationError(wrapped))
	assert.False(t, IsValidationError(fmt.Errorf("connection refused")))
	assert.False(t, IsValidationError(nil))
}
