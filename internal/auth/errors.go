package auth

import "errors"

// Sentinel errors for the auth package.
var (
	ErrInvalidCredentials = errors.New("invalid identifier or password")
	ErrInvalidToken       = errors.New("invalid or tampered token")
	ErrAccountTombstoned  = errors.New("account has been deleted")
	ErrUserNotFound       = errors.New("no such user")
)
