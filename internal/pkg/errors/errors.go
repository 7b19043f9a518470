package errors

import "errors"

var (
	// ErrNotFound is a generic sentinel for missing resources.
	ErrNotFound = errors.New("not found")
	// ErrLeaseHeld means another run of the same job currently owns the lease.
	ErrLeaseHeld = errors.New("lease held by another run")
)
