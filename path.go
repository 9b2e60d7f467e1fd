package duocache

import (
	"os"
	"path/filepath"
)

// Path selects the Disk Tier's backing directory, per spec.md §6.
type Path struct {
	dir      string
	resolved bool
}

// Default resolves to <platform-caches-dir>/name. If the platform has no
// caches directory, the returned Path carries no directory and [Tier.Prepare]
// (via the root Cache) fails with [ErrPathUnavailable].
func Default(name string) Path {
	base, err := os.UserCacheDir()
	if err != nil || base == "" {
		return Path{}
	}

	return Path{dir: filepath.Join(base, name), resolved: true}
}

// Custom uses dir verbatim as the backing directory.
func Custom(dir string) Path {
	return Path{dir: dir, resolved: dir != ""}
}

func (p Path) String() string { return p.dir }
