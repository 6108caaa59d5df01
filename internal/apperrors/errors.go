package apperrors

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a referenced entity does not exist (or is not
// visible to the caller). Services return it directly so handlers can map
// it to 404 without string matching.
var ErrNotFound = errors.New("not found")

// ValidationError indicates malformed, missing or contradictory input.
// Caller's fault; never retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %q: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for the given field.
func NewValidation(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// InvalidTransitionError indicates a listing status edge outside the
// allowed state machine.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid listing transition %s -> %s", e.From, e.To)
}

// InsufficientImagesError indicates an activation attempt on a listing
// with fewer images than the configured minimum.
type InsufficientImagesError struct {
	Have int
	Need int
}

func (e *InsufficientImagesError) Error() string {
	return fmt.Sprintf("listing has %d images, %d required to activate", e.Have, e.Need)
}

// QuotaExceededError indicates the user already has the maximum number of
// unpaid active listings. The message is user-facing and actionable.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("unpaid active listing limit of %d reached; upgrade to add more listings", e.Limit)
}

// StoreUnavailableError indicates a transient infrastructure fault
// (timeout, lost connection). Eligible for bounded retry at the caller.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error { return e.Err }

// IsStoreUnavailable reports whether err is (or wraps) a
// StoreUnavailableError.
func IsStoreUnavailable(err error) bool {
	var se *StoreUnavailableError
	return errors.As(err, &se)
}
