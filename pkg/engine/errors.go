package engine

import "errors"

var (
	// ErrInvalidConfig indicates the engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid engine configuration")

	// ErrNilRequest indicates Evaluate was called without a request.
	ErrNilRequest = errors.New("request cannot be nil")
)
