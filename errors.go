package accounts

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoEmptyString is returned when a credential operation gets an empty input
var ErrNoEmptyString = errors.New("value should not be an empty string")

// ErrMismatchedHashAndPassword is the error for a failed password comparison
var ErrMismatchedHashAndPassword = errors.New("mismatched hash and password")

// ErrAccountNotFound is the error we return for non found accounts
var ErrAccountNotFound = errors.New("account not found")

// ErrDuplicateEmail is returned when registration hits an email already in use
var ErrDuplicateEmail = errors.New("account with given email already exists")

// transientErr marks storage failures that are expected to succeed on an
// immediate retry, e.g. a statement cache invalidation.
type transientErr struct {
	err error
}

func (t transientErr) Error() string {
	return fmt.Sprintf("transient store error: %s", t.err)
}

func (t transientErr) Unwrap() error {
	return t.err
}

// MarkTransient tags err as a transient store error so the gateway retries it.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return transientErr{err: err}
}

// IsTransientStoreError will check for storage failures worth retrying.
// Driver errors do not share a common type across dialects, so we match on
// the message the same way we match provider error strings elsewhere.
func IsTransientStoreError(err error) bool {
	if err == nil {
		return false
	}

	var t transientErr
	if errors.As(err, &t) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "cached plan must not change result type") ||
		strings.Contains(msg, "cached statement") ||
		strings.Contains(msg, "internal error")
}

// IsCredentialFormatError will check for a malformed stored digest. Unlike a
// plain mismatch this indicates corrupted state and is propagated to callers.
func IsCredentialFormatError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMismatchedHashAndPassword) {
		return false
	}
	return strings.Contains(err.Error(), "hashedSecret too short") ||
		strings.Contains(err.Error(), "hashed secret")
}
