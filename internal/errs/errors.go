package errs

import (
	"errors"
	"fmt"
)

// ValidationError indicates a malformed search intent. It is surfaced
// immediately to the caller and never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ProviderUnavailableError indicates the embedding or vector-index backend
// could not be reached at all. The coordinator may retry the request once
// through the fallback chain.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e *ProviderUnavailableError) Error() string {
	return fmt.Sprintf("%s unavailable: %v", e.Provider, e.Err)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

// ProviderError indicates the backend was reachable but rejected the request
// (bad request, auth failure, dimension mismatch). Not retried.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Provider, e.Message)
}

// StoreError indicates a relational query failure. Always fatal for the
// in-flight request; no partial results are synthesized.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsProviderUnavailable reports whether err is a ProviderUnavailableError.
// This is the only failure class the coordinator converts into a fallback
// execution.
func IsProviderUnavailable(err error) bool {
	var u *ProviderUnavailableError
	return errors.As(err, &u)
}

// IsStore reports whether err is a StoreError.
func IsStore(err error) bool {
	var s *StoreError
	return errors.As(err, &s)
}
