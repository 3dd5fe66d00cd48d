package store

import "errors"

// Validation errors.
var (
	// ErrContentTooLarge is returned when a single item exceeds the
	// per-item size limit. The store is never mutated in that case.
	ErrContentTooLarge = errors.New("content exceeds maximum item size")
)
