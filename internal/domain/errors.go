package domain

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInvalidInput   = errors.New("invalid input")
	ErrRateLimited    = errors.New("rate limited")
)

// ErrStaleVersion is returned when a snapshot older than the stored one is
// offered for persistence.
var ErrStaleVersion = errors.New("stale version")
