package domain

import "errors"

// Sentinel errors for contract violations at the grid and field boundary.
var (
	ErrIndexOutOfRange = errors.New("index out of range")
	ErrFieldLength     = errors.New("field length does not match extents")
	ErrMaskLength      = errors.New("mask length does not match horizontal extents")
	ErrCoordLength     = errors.New("coordinate length does not match extent")
	ErrNotMonotonic    = errors.New("coordinate is not strictly monotonic")
	ErrInvalidExtents  = errors.New("extents must all be positive")
	ErrGridMismatch    = errors.New("fields are not on the same grid")
)

// ErrVariableNotFound is returned by loaders for unknown variable names.
var ErrVariableNotFound = errors.New("variable not found")
