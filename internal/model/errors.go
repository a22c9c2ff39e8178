package model

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when the secondary classifier cannot be reached.
var ErrUnavailable = errors.New("secondary classifier unavailable")

// HTTPError carries the status of a failed HTTP exchange so callers can
// decide whether it is worth retrying.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // zero when the server sent no Retry-After
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// Temporary reports whether the status is worth retrying (429 or 5xx).
func (e *HTTPError) Temporary() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// NewHTTPError builds an HTTPError from a non-2xx response. body is a
// snippet of the response for the message and may be empty.
func NewHTTPError(resp *http.Response, body []byte) *HTTPError {
	e := &HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After")),
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		if len(msg) > 200 {
			msg = msg[:200] + "..."
		}
		e.Err = errors.New(msg)
	}
	return e
}

// ParseRetryAfter parses a Retry-After header given in seconds. It returns
// zero when the header is absent or not a number.
func ParseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
