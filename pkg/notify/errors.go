package notify

import "errors"

var (
	// ErrStoreUnavailable indicates a transient storage failure. A caller
	// that receives it must not assume the write reached the store.
	ErrStoreUnavailable = errors.New("notification store unavailable")

	// ErrNotFound indicates the notification does not exist or belongs to
	// a different identity. The two cases are deliberately indistinguishable.
	ErrNotFound = errors.New("notification not found")

	// ErrAlreadyBound indicates a connection was bound twice with
	// different identities. The connection remains in its prior state.
	ErrAlreadyBound = errors.New("connection already bound to another identity")
)
