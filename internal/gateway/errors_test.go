package gateway

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "afford rewrite",
			body: `{"error":{"message":"This request requires more credits, or fewer max_tokens. You requested up to 10000 tokens, but can only afford 2048. To increase, visit the credits page"}}`,
			want: "Not enough tokens: Requested 10000, can only afford 2048.",
		},
		{
			name: "key limit rewrite",
			body: `{"error":{"message":"Key limit exceeded (total limit). Manage it using the keys page"}}`,
			want: "Key limit exceeded (total limit).",
		},
		{
			name: "plain message",
			body: `{"error":{"message":"Model not found","code":404}}`,
			want: "Model not found",
		},
		{
			name: "non json body",
			body: "  upstream connect error  ",
			want: "upstream connect error",
		},
		{
			name: "json without message",
			body: `{"detail":"nope"}`,
			want: `{"detail":"nope"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseErrorMessage([]byte(tt.body)))
		})
	}
}

func TestTransientStatus(t *testing.T) {
	for _, code := range []int{http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusServiceUnavailable} {
		assert.True(t, transientStatus(code), code)
	}
	for _, code := range []int{http.StatusBadRequest, http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusNotFound, http.StatusInternalServerError, http.StatusBadGateway} {
		assert.False(t, transientStatus(code), code)
	}
}

func TestAPIError(t *testing.T) {
	inner := errors.New("dial tcp: refused")
	err := &APIError{Message: "network error", Kind: KindTransient, Err: inner}
	assert.Equal(t, "network error", err.Error())
	assert.ErrorIs(t, err, inner)
	assert.True(t, err.Transient())

	err = &APIError{Message: "bad request", StatusCode: 400, Kind: KindFatal}
	assert.Equal(t, "bad request (status 400)", err.Error())
	assert.False(t, err.Transient())
	assert.Equal(t, "fatal", err.Kind.String())
}
