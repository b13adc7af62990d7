package engine

import "errors"

var (
	// ErrInvalidAmount rejects a settlement amount before any mutation:
	// non-positive, or not in the caller's allowed catalog.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidSetting rejects an out-of-range settings field.
	ErrInvalidSetting = errors.New("invalid setting")
)
