package dfs

import "errors"

// ErrLockHeld is returned by [Real.Lock] when another process already holds
// the exclusive lock on the path.
var ErrLockHeld = errors.New("lock already held")
