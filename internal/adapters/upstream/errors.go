package upstream

import (
	"errors"
)

// Sentinel error kinds for upstream calls.
var (
	// ErrRateLimited means the source kept answering 429 after all retries.
	ErrRateLimited = errors.New("upstream rate limited")
	// ErrCircuitOpen means the source is cooling down after a rate limit.
	ErrCircuitOpen = errors.New("upstream circuit open")
	// ErrNotFound means the source does not know the character.
	ErrNotFound = errors.New("upstream not found")
	// ErrMalformed means the payload could not be decoded.
	ErrMalformed = errors.New("upstream payload malformed")
	// ErrNotConfigured means credentials or endpoints are missing.
	ErrNotConfigured = errors.New("upstream not configured")
	// ErrUnavailable covers transport failures and unexpected statuses.
	ErrUnavailable = errors.New("upstream unavailable")
)

// Retryable reports whether err is a "try again later" condition rather than
// an absence of data.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrCircuitOpen) || errors.Is(err, ErrUnavailable)
}
