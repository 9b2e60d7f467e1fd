package duocache

import (
	"crypto/sha1" //nolint:gosec // non-cryptographic key-to-path hash, per spec.md §9
	"encoding/hex"
	"fmt"

	"github.com/calvinalkan/duocache/internal/disktier"
)

// Projector extracts the textual projection of a key that [DefaultFilename]
// hashes into a file name. Keys that implement fmt.Stringer use String();
// everything else falls back to fmt.Sprint.
type Projector[K comparable] func(K) string

// DefaultFilename returns the normative filename function from spec.md §6:
// UTF-8 encode project(key), SHA-1, hex-encode lowercase. An empty
// projection yields no filename, so the cache skips that key's disk half.
func DefaultFilename[K comparable](project Projector[K]) disktier.Filename[K] {
	if project == nil {
		project = defaultProjection[K]
	}

	return func(key K) (string, bool) {
		s := project(key)
		if s == "" {
			return "", false
		}

		sum := sha1.Sum([]byte(s)) //nolint:gosec

		return hex.EncodeToString(sum[:]), true
	}
}

func defaultProjection[K comparable](key K) string {
	if s, ok := any(key).(fmt.Stringer); ok {
		return s.String()
	}

	if s, ok := any(key).(string); ok {
		return s
	}

	return fmt.Sprint(key)
}
