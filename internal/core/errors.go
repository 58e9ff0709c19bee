package core

import "errors"

var (
	// ErrOwnerMismatch hides other owners' automations; callers surface it
	// the same way as a missing record.
	ErrOwnerMismatch = errors.New("automation owned by another user")

	// ErrInactive rejects runs against paused or retired automations.
	ErrInactive = errors.New("automation is not active")

	// ErrRetired rejects lifecycle transitions out of the terminal state.
	ErrRetired = errors.New("automation is retired")
)
