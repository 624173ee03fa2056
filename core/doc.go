// Package core provides the shared vocabulary used across gitfs: the
// commit identity attached to a transaction, path-splitting rules for
// the overlay, and the POSIX-flavored error taxonomy every other
// package returns.
//
// # Errors
//
// Every path-facing failure is a *PathError carrying an ErrorKind and
// the offending path, so callers can branch with errors.Is:
//
//	if errors.Is(err, core.NoSuchFileOrDirectory) {
//	    // ...
//	}
//
// Failures from the underlying git object database surface as
// *ObjectStoreErr instead, wrapping the underlying cause.
package core
