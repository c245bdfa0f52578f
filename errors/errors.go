// Package errors provides error handling for Reductionist.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - User-facing hints attached to grammar errors
//
// Usage:
//
//	// Wrap with context
//	if err := decode(r); err != nil {
//	    return errors.Wrap(err, "failed to decode grammar")
//	}
//
//	// Add hints for authors
//	return errors.WithHint(err, "export the grammar again from the authoring tool")
//
//	// Check errors
//	if errors.Is(err, errors.ErrCycle) {
//	    // no artifacts were written
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Join         = crdb.Join
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	Mark           = crdb.Mark
	GetAllHints    = crdb.GetAllHints
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// AssertionFailedf reports a broken internal invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors for the grammar compilation taxonomy.
// Typed errors in the grammar and validate packages are marked with these,
// so callers can use errors.Is without importing those packages.
var (
	// ErrLoad indicates the grammar input could not be read or parsed
	ErrLoad = New("grammar could not be loaded")

	// ErrReference indicates a rule body names an undeclared symbol
	ErrReference = New("undeclared symbol reference")

	// ErrCycle indicates a symbol can derive itself
	ErrCycle = New("grammar contains a cycle")

	// ErrFormat indicates a compiled artifact has an unsupported layout or version
	ErrFormat = New("unsupported artifact format")

	// ErrNotFound indicates a requested meaning, path or symbol does not exist
	ErrNotFound = New("not found")
)

// IsFatal reports whether err belongs to the fatal grammar taxonomy
// (load, reference or cycle errors).
func IsFatal(err error) bool {
	return err != nil && IsAny(err, ErrLoad, ErrReference, ErrCycle)
}

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Mark(Newf(format, args...), ErrNotFound)
}
