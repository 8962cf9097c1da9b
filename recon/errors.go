/*
errors.go - Centralized error types for the reconciliation engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The taxonomy follows the two failure classes of a pure batch computation:

  1. Input errors - missing required columns, undecodable bytes, empty
     tables. Always terminal for the run; surfaced with file and column
     context so a human can correct the source file.
  2. Field-level anomalies - unparseable dates, sentinel values, rows
     missing key fields. These are NOT errors: they are recovered locally
     (null field or dropped row) and counted in Diagnostics.

USAGE:
  Callers branch on the class, not the concrete type:

    if recon.IsInputError(err) {
        // 400-class: the uploaded file is malformed
    }

SEE ALSO:
  - types.go: Diagnostics (where recovered anomalies are counted)
*/
package recon

import (
	"errors"
	"fmt"
	"strings"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingColumns is returned when an input table lacks one or more
	// required columns. The run fails before any row is normalized.
	ErrMissingColumns = errors.New("missing required columns")

	// ErrUndecodableInput is returned when no candidate text encoding can
	// decode the raw input bytes.
	ErrUndecodableInput = errors.New("input not decodable with any supported encoding")

	// ErrEmptyInput is returned when an input table has no data rows.
	ErrEmptyInput = errors.New("empty input table")

	// ErrRunNotFound is returned when a referenced reconciliation run
	// does not exist.
	ErrRunNotFound = errors.New("reconciliation run not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry file/column context
// =============================================================================

// MissingColumnsError identifies the offending file and the exact columns
// it lacks.
type MissingColumnsError struct {
	Source  string
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.Columns, ", "))
}

func (e *MissingColumnsError) Unwrap() error { return ErrMissingColumns }

// EncodingError reports that every candidate encoding failed to decode the
// input.
type EncodingError struct {
	Source string
	Tried  []string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: could not decode input (tried %s)", e.Source, strings.Join(e.Tried, ", "))
}

func (e *EncodingError) Unwrap() error { return ErrUndecodableInput }

// EmptyInputError identifies which input table had no rows.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: input table has no data rows", e.Source)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsInputError returns true if the error is caused by malformed input and
// can only be fixed by correcting the source file.
func IsInputError(err error) bool {
	return errors.Is(err, ErrMissingColumns) ||
		errors.Is(err, ErrUndecodableInput) ||
		errors.Is(err, ErrEmptyInput)
}

// IsNotFound returns true if the error indicates a missing run.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRunNotFound)
}
