package middleware

import (
	"errors"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValidationErrors(t *testing.T) {
	type form struct {
		Email string `validate:"required,email"`
		Code  string `validate:"len=6"`
	}

	v := validator.New()
	err := v.Struct(form{Email: "not-an-email", Code: "12"})
	require.Error(t, err)

	msg := FormatValidationErrors(err)
	assert.Contains(t, msg, "Email: Invalid email format")
	assert.Contains(t, msg, "Code: Must be exactly 6 characters")
	assert.Contains(t, msg, "; ")
}

func TestFormatValidationErrorsNonValidatorError(t *testing.T) {
	msg := FormatValidationErrors(errors.New("unexpected EOF"))
	assert.Equal(t, "Request validation failed", msg)
}
