package database

import "errors"

// Sentinel errors shared by the store layer. Wrap with %w and match with
// errors.Is at the API boundary.
var (
	// ErrNotFound means the addressed record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidTransition means the requested lifecycle move is not in the
	// transition table
	ErrInvalidTransition = errors.New("invalid status transition")
)
