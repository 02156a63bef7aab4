package domain

import "errors"

var (
	// ErrValidation covers missing or malformed input, e.g. an absent email.
	ErrValidation = errors.New("validation failed")
	// ErrConflict is returned when creating a user whose email is already registered.
	ErrConflict = errors.New("user already exists")
	// ErrNotFound is returned for operations on an id the store does not know.
	ErrNotFound = errors.New("user not found")
	// ErrUnauthorized marks an identity without a registry record.
	ErrUnauthorized = errors.New("unauthorized identity")
	// ErrForbidden is returned when a non-admin session calls an admin operation.
	ErrForbidden = errors.New("access forbidden")
	// ErrStoreUnavailable wraps transport failures of the user registry.
	ErrStoreUnavailable = errors.New("user store unavailable")
	// ErrProvider wraps failures of the identity provider.
	ErrProvider = errors.New("identity provider error")
	// ErrUserCancelled is returned when the person abandoned the sign-in.
	ErrUserCancelled = errors.New("sign-in cancelled")
	// ErrInvalidState is returned when an OAuth callback carries an unknown or expired state.
	ErrInvalidState = errors.New("invalid or expired login state")
)
