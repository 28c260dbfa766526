package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetailMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"string", `"Email already registered"`, "Email already registered"},
		{"validation list", `[{"loc":["body","age"],"msg":"ensure this value is greater than 17"}]`, "ensure this value is greater than 17"},
		{"object", `{"code":1}`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &ErrorBody{Detail: []byte(tt.raw)}
			assert.Equal(t, tt.want, b.DetailMessage())
		})
	}
	assert.Equal(t, "", (*ErrorBody)(nil).DetailMessage())
}

func TestFromResponse(t *testing.T) {
	err := FromResponse("get matches", http.StatusBadRequest, &ErrorBody{Detail: []byte(`"nope"`)}, `{"detail":"nope"}`, "Failed to get matches")
	assert.EqualError(t, err, "nope")
	assert.Equal(t, http.StatusBadRequest, StatusCode(err))

	err = FromResponse("get matches", http.StatusInternalServerError, nil, "oops", "Failed to get matches")
	assert.EqualError(t, err, "Failed to get matches")
	assert.False(t, IsUnauthorized(err))
}

func TestFromTransport(t *testing.T) {
	boom := errors.New("connection refused")
	err := FromTransport("send message", boom, "Failed to send message")
	assert.EqualError(t, err, "Failed to send message")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, StatusCode(err))
}

func TestInvalidCredentialsIs(t *testing.T) {
	err := Wrap(InvalidCredentialsMessage, &StatusError{Op: "login", StatusCode: 401})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.True(t, IsUnauthorized(err))
	assert.Equal(t, "Invalid email or password", Message(fmt.Errorf("ctx: %w", err), "x"))
	assert.Equal(t, "x", Message(errors.New("raw"), "x"))
}

func TestWithFallback(t *testing.T) {
	detailed := FromResponse("me", http.StatusBadRequest, &ErrorBody{Detail: []byte(`"Account disabled"`)}, "", "Failed to load user")
	assert.EqualError(t, WithFallback(detailed, "Login failed. Please try again."), "Account disabled")

	generic := FromResponse("me", http.StatusInternalServerError, nil, "", "Failed to load user")
	err := WithFallback(generic, "Login failed. Please try again.")
	assert.EqualError(t, err, "Login failed. Please try again.")
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))

	assert.EqualError(t, WithFallback(errors.New("disk full"), "Login failed. Please try again."), "Login failed. Please try again.")
}
