package passgate

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the reconciliation engine and its collaborators.
var (
	// ErrUserNotFound means no user record matched the lookup key.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCredentials covers wrong password and provider-only accounts
	// during local auth. Callers must not distinguish the two paths.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProviderLinked is returned when a provider identity is already
	// attached to a different user than the one in the current session.
	ErrProviderLinked = errors.New("provider identity already linked to another account")

	// ErrTokenExpired means the session token's embedded expiry has passed.
	ErrTokenExpired = errors.New("session token expired")

	// ErrTokenInvalid means the signature did not verify or the payload is malformed.
	ErrTokenInvalid = errors.New("session token invalid")

	// ErrDuplicateEmail is returned by stores when a create/save would
	// violate email uniqueness.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrDuplicateLink is returned by stores when a create/save would attach
	// a (provider, subject) pair that another record already owns.
	ErrDuplicateLink = errors.New("provider link already exists")
)

// StoreError wraps any underlying persistence failure so callers can tell
// infrastructure faults apart from domain outcomes.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// NewStoreError wraps err unless it is already one of the domain sentinels.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrDuplicateEmail),
		errors.Is(err, ErrDuplicateLink):
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// HashingError reports a password hashing or verification failure that is not
// a simple mismatch (RNG failure, malformed stored hash).
type HashingError struct {
	Err error
}

func (e *HashingError) Error() string {
	return fmt.Sprintf("password hashing: %v", e.Err)
}

func (e *HashingError) Unwrap() error { return e.Err }

// Error codes used in AuthError responses at the HTTP boundary.
const (
	ErrCodeInvalidEmail   = "invalid_email"
	ErrCodeWeakPassword   = "weak_password"
	ErrCodeMissingField   = "missing_field"
	ErrCodeInvalidCreds   = "invalid_credentials"
	ErrCodeEmailExists    = "email_exists"
	ErrCodeProviderLinked = "provider_already_linked"
	ErrCodeStoreFailure   = "store_failure"
)

// AuthError is the JSON error shape returned by the HTTP handlers.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAuthError creates an AuthError with the given code, message and field.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}
