package model

import "errors"

var (
	// ErrNotFound is returned by store drivers when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail is returned when registering an email that is
	// already taken (compared case-insensitively).
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrVersionConflict is returned by conditional preference updates when
	// the row changed since the caller read it.
	ErrVersionConflict = errors.New("preferences version conflict")

	// ErrInvalidInput is wrapped by services when the caller's input fails
	// validation. Handlers map it to 400.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned on login with a wrong email or
	// password. The two cases are deliberately indistinguishable.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrForbidden is returned when a caller touches a resource owned by
	// another user.
	ErrForbidden = errors.New("access denied")
)
