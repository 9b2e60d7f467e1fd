package duocache

import "github.com/calvinalkan/duocache/internal/duoerr"

// Error kinds from spec.md §7. Cancelled is not redefined here: it is a pure
// propagation of context cancellation, so callers use context.Canceled /
// context.DeadlineExceeded directly.
var (
	// ErrPathUnavailable means Prepare could not resolve or lock a backing
	// directory for the disk tier.
	ErrPathUnavailable = duoerr.ErrPathUnavailable

	// ErrIO means a filesystem operation failed.
	ErrIO = duoerr.ErrIO

	// ErrCodec means value<->bytes conversion failed.
	ErrCodec = duoerr.ErrCodec

	// ErrNotFound means the key is absent from every tier. Get returns this
	// only when asked to, via [Cache.Value]; the plain [Cache.Get] reports
	// absence through its bool return instead.
	ErrNotFound = duoerr.ErrNotFound
)
