// Package errors provides common domain error types for the series engine.
//
// This package defines sentinel errors for recurring domain conditions like
// "not found" or "conflict" that are shared across packages. Using typed
// errors enables consistent handling with errors.Is() checks.
//
// Usage:
//
//	import fferrors "github.com/Poxagronka/fireflies-summary/pkg/errors"
//
//	// Return a domain error
//	return nil, fferrors.ErrNotFound
//
//	// Check for domain errors
//	if fferrors.IsNotFound(err) {
//	    // handle not found case
//	}
package errors

import "errors"

// Domain errors - common sentinel errors for domain conditions.
var (
	// ErrNotFound indicates the requested record was not found. For the
	// previous-occurrence resolver this is an expected condition, not a
	// failure: a series may simply have no prior transcript-ready occurrence.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data, such as an
	// occurrence that is already attached to a different series.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates invalid input or validation failure at the
	// calendar payload boundary.
	ErrValidation = errors.New("validation error")

	// ErrUpstream indicates a transient failure fetching data from an
	// external collaborator (calendar, transcript service). The engine
	// proceeds with partial signals instead of aborting.
	ErrUpstream = errors.New("upstream unavailable")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict reports whether any error in err's chain is ErrConflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUpstream reports whether any error in err's chain is ErrUpstream.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsTransient reports whether err represents a condition worth retrying.
// Only upstream collaborator failures are retryable; domain conflicts and
// validation failures are not.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstream)
}
