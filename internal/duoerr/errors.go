// Package duoerr holds the sentinel error kinds shared across duocache's
// internal tiers, following the teacher's errors.go convention of one
// package-level errors.New per failure kind instead of custom error types.
// The root duocache package re-exports these so callers never need to
// import an internal package to use errors.Is against them.
package duoerr

import "errors"

var (
	// ErrPathUnavailable means [disktier] could not resolve or lock a
	// backing directory. Reads return not-found; writes are still accepted
	// into staging but their flush will fail and be logged (spec.md §7).
	ErrPathUnavailable = errors.New("duocache: backing directory unavailable")

	// ErrIO means a filesystem read/write/remove/create failed.
	ErrIO = errors.New("duocache: io failure")

	// ErrCodec means value<->bytes conversion failed.
	ErrCodec = errors.New("duocache: codec failure")

	// ErrNotFound means the key is absent from every tier. Internal code
	// returns this as a bool/ok return, not an error value; it exists so
	// callers of lower-level helpers that do return an error have something
	// to errors.Is against.
	ErrNotFound = errors.New("duocache: not found")
)
