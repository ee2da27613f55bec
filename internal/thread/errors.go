package thread

import "errors"

// Sentinel errors for store operations. Callers match with errors.Is().
var (
	// ErrNotFound indicates the thread reference does not resolve to a
	// thread accessible by the requesting owner.
	ErrNotFound = errors.New("thread not found")

	// ErrPersistence indicates an underlying storage read or write
	// failed. The caller is responsible for rolling back any optimistic
	// view state.
	ErrPersistence = errors.New("persistence failure")
)
