package auth

import "errors"

var (
	// ErrUnauthorized: missing, malformed, or expired credentials.
	ErrUnauthorized = errors.New("auth: unauthorized")
	// ErrForbidden: authenticated caller lacks the required role.
	ErrForbidden = errors.New("auth: forbidden")
	// ErrInvalidInput: request fails format or length rules.
	ErrInvalidInput = errors.New("auth: invalid input")
	// ErrNotFound: referenced account does not exist.
	ErrNotFound = errors.New("auth: not found")
	// ErrEmailExists: the email is already registered.
	ErrEmailExists = errors.New("auth: email already registered")
)
