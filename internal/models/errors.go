package models

import "errors"

// Sentinel errors shared by the local store, the REST client and the API.
var (
	// ErrNotFound is returned when a row does not exist (or is soft-deleted
	// and the lookup does not include deleted rows).
	ErrNotFound = errors.New("not found")

	// ErrInvalid marks a request the store refused to apply.
	ErrInvalid = errors.New("invalid request")

	// ErrAuthExpired is returned when the data backend rejects the session
	// token. Callers escalate it to a forced sign-out instead of retrying.
	ErrAuthExpired = errors.New("auth session expired")
)
