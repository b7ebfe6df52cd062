package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransient failures are retried with backoff.
	KindTransient ErrorKind = iota + 1
	// KindFatal failures are returned immediately.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// APIError is returned by Invoke when a call cannot produce a response.
type APIError struct {
	Model      string
	StatusCode int
	Message    string
	Kind       ErrorKind
	Attempts   int
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Transient reports whether the failure was retryable.
func (e *APIError) Transient() bool { return e.Kind == KindTransient }

// transientStatus lists the statuses retried with backoff: rate limited,
// request timeout and service unavailable.
func transientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusRequestTimeout, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

var affordPattern = regexp.MustCompile(`You requested up to (\d+) tokens, but can only afford (\d+)`)

// ParseErrorMessage extracts a concise message from an API error body. It
// reads error.message when the body is a JSON error object and falls back
// to the raw body text.
func ParseErrorMessage(body []byte) string {
	raw := strings.TrimSpace(string(body))

	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Message == "" {
		return raw
	}
	message := payload.Error.Message

	if m := affordPattern.FindStringSubmatch(message); m != nil {
		return fmt.Sprintf("Not enough tokens: Requested %s, can only afford %s.", m[1], m[2])
	}
	if strings.Contains(message, "Key limit exceeded (total limit)") {
		return "Key limit exceeded (total limit)."
	}
	return message
}
