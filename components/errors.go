package components

import "errors"

// Error categories. Every error produced by the engine wraps exactly one of
// these so callers can branch with errors.Is.
var (
	// ErrConfig marks a construction-time configuration error.
	ErrConfig = errors.New("configuration error")
	// ErrUsage marks an error raised at the call site of an operation.
	ErrUsage = errors.New("usage error")
	// ErrNotImplemented marks a declared but unsupported feature.
	ErrNotImplemented = errors.New("not implemented")
)
