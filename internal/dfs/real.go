package dfs

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"syscall"
	"time"

	"github.com/natefinch/atomic"
	"golang.org/x/sys/unix"
)

// blockSize is the unit of syscall.Stat_t.Blocks. When Sys() does not expose
// a Stat_t, ListEntries falls back to the logical size as the allocated size.
const blockSize = 512

// Real implements [FS] against the real filesystem. It mirrors the
// teacher's internal/fs.Real: thin passthroughs to the os package, plus
// [Real.WriteFileAtomic] (atomic.WriteFile, same as the teacher's
// Real.WriteFileAtomic) and [Real.Lock] (flock(2), same primitive as the
// teacher's internal/fs.Locker).
type Real struct{}

// NewReal returns a [Real] filesystem.
func NewReal() *Real { return &Real{} }

func (r *Real) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (r *Real) WriteFileAtomic(path string, data []byte, _ os.FileMode) error {
	return atomic.WriteFile(path, bytes.NewReader(data))
}

func (r *Real) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (r *Real) Remove(path string) error {
	return os.Remove(path)
}

func (r *Real) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (r *Real) Stat(path string) (os.FileInfo, error) {
	return os.Stat(path)
}

func (r *Real) Chtimes(path string, atime, mtime time.Time) error {
	return os.Chtimes(path, atime, mtime)
}

func (r *Real) ListEntries(dir string) ([]Entry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirEntries))

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}

		info, statErr := de.Info()
		if statErr != nil {
			continue
		}

		allocated := info.Size()
		accessTime := info.ModTime()

		if stat, ok := info.Sys().(*syscall.Stat_t); ok {
			allocated = stat.Blocks * blockSize
			accessTime = time.Unix(stat.Atim.Sec, stat.Atim.Nsec) //nolint:unconvert // Sec/Nsec width is platform-dependent
		}

		entries = append(entries, Entry{
			Name:          de.Name(),
			Size:          info.Size(),
			AllocatedSize: allocated,
			AccessTime:    accessTime,
			ModTime:       info.ModTime(),
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

type flockLocker struct {
	file *os.File
}

func (l *flockLocker) Close() error {
	_ = unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	return l.file.Close()
}

// Lock takes a non-blocking exclusive flock(2) on path, following the same
// "separate lock file, non-blocking try, explicit unlock on Close" shape as
// the teacher's internal/fs.Locker.
func (r *Real) Lock(path string) (Locker, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644) //nolint:gosec,mnd // lock file perms
	if err != nil {
		return nil, fmt.Errorf("opening lock file %q: %w", path, err)
	}

	if flockErr := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); flockErr != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, path)
	}

	return &flockLocker{file: file}, nil
}
