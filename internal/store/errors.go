package store

import "errors"

// Sentinel errors shared by the storage backends. Handlers check these with
// errors.Is to separate modeled negatives from infrastructure faults.
var (
	ErrNotFound          = errors.New("record not found")
	ErrDuplicateUsername = errors.New("username already exists")
)
