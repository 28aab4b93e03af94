package domain

import "errors"

var (
	// ErrInvalidCredentials is returned when the identity provider
	// reports success but hands back no usable identity.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrProfileNotFound is returned when no profile document matches
	// the queried email.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrSessionNotFound is returned by snapshot storage when no saved
	// session exists under the given ID.
	ErrSessionNotFound = errors.New("session not found")
)
