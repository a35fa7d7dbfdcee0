package domain

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrProfileNotFound signals that no profile row exists for a principal.
	// It is an expected condition: the reconciler reacts by creating the row.
	ErrProfileNotFound = errors.New("profile not found")

	// ErrProfileExists signals a uniqueness violation on insert: another
	// writer provisioned the same principal first. Expected under races.
	ErrProfileExists = errors.New("profile already exists")

	// ErrNoSession signals that the provider reported no authenticated
	// connection. Not a failure.
	ErrNoSession = errors.New("no active session")
)

// IsConnectivityErr reports whether err looks like a transport-level failure
// (timeout, refused connection, DNS) rather than a definitive answer from the
// remote side. Connectivity failures during the initial probe select the
// offline-fallback path.
func IsConnectivityErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
