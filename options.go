package duocache

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/calvinalkan/duocache/duoclock"
	"github.com/calvinalkan/duocache/internal/dfs"
	"github.com/calvinalkan/duocache/internal/disktier"
)

// Options configures a [Cache]. The zero value is not usable: at minimum
// Path must be set to either [Default] or [Custom].
type Options[K comparable, V any] struct {
	// Path selects the Disk Tier's backing directory.
	Path Path

	// MemoryCountLimit and MemoryCostLimit bound the Memory Tier (0 disables
	// a limit). Cost is the byte length when V is []byte, 0 otherwise.
	MemoryCountLimit int
	MemoryCostLimit  int

	// SizeLimit bounds the Disk Tier's total allocated size. Defaults to
	// [disktier.DefaultSizeLimit] (150 MiB) when zero.
	SizeLimit int64

	// ExpirationTimeout expires disk entries by age during sweep. Zero
	// disables age-based expiration.
	ExpirationTimeout time.Duration

	// Filename projects a key to its on-disk file name. Defaults to
	// [DefaultFilename] with [fmt.Sprint] projection when nil.
	Filename disktier.Filename[K]

	// Codec converts values to and from disk bytes. Ignored (and may be
	// left nil) when V is []byte. Defaults to [JSONCodec] otherwise.
	Codec Codec[V]

	// Clock is the time source for the flush debounce and sweeper. Defaults
	// to [duoclock.Real].
	Clock duoclock.Clock

	// FS is the filesystem the Disk Tier reads and writes through. Defaults
	// to [dfs.Real].
	FS dfs.FS

	// Logger receives warnings for swallowed IOFailure/CodecFailure
	// conditions per spec.md §7. A nil Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

func (o Options[K, V]) withDefaults() Options[K, V] {
	if o.Clock == nil {
		o.Clock = duoclock.Real{}
	}

	if o.FS == nil {
		o.FS = dfs.NewReal()
	}

	if o.Filename == nil {
		o.Filename = DefaultFilename[K](nil)
	}

	if o.Codec == nil {
		if isByteValue[V]() {
			o.Codec = byteCodec[V]{}
		} else {
			o.Codec = JSONCodec[V]()
		}
	}

	if o.Logger == nil {
		nop := zerolog.Nop()
		o.Logger = &nop
	}

	return o
}
