package types

import (
	"errors"
	"fmt"
)

// TransientFetchError represents an upstream funding-rate fetch failure
// (network, timeout, bad response). It is recorded on the cache and retried
// on the next warmer tick; it is never surfaced to cache readers.
type TransientFetchError struct {
	Source  string // which upstream call failed
	Message string
	Err     error
}

func (e *TransientFetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch failed: %s: %v", e.Source, e.Message, e.Err)
	}

	return fmt.Sprintf("%s fetch failed: %s", e.Source, e.Message)
}

func (e *TransientFetchError) Unwrap() error {
	return e.Err
}

// NewTransientFetchError wraps an upstream failure with its source tag.
func NewTransientFetchError(source, message string, err error) *TransientFetchError {
	return &TransientFetchError{Source: source, Message: message, Err: err}
}

// IsTransientFetch reports whether err is (or wraps) a TransientFetchError.
func IsTransientFetch(err error) bool {
	var tfe *TransientFetchError
	return errors.As(err, &tfe)
}

// ErrNoSnapshot is returned by the rate cache when a refresh fails before any
// fetch has ever succeeded. Callers must treat it as "no data yet", not as a
// fatal condition.
var ErrNoSnapshot = errors.New("no funding-rate snapshot available yet")
