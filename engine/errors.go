/*
errors.go - Centralized error types for the bonus pipeline

PURPOSE:
  All error types in one place for consistency and discoverability.
  Stage code records these in the Ledger instead of returning them; only
  persistence failures are returned from Pipeline.Run.

ERROR CATEGORIES:
  1. Source errors     - MissingFile (stage degrades to empty)
  2. Record errors     - MalformedRecord (line skipped)
  3. Identity errors   - UnknownIdentity, DuplicateIdentity
  4. Policy errors     - InvalidPolicy, NoEligiblePopulation

USAGE:
  if errors.Is(err, engine.ErrMissingFile) {
      // stage skipped, pipeline continues
  }

SEE ALSO:
  - ledger.go: Records these errors per category
  - pipeline.go: Applies the no-abort policy
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingFile is returned when a required input source cannot be opened.
	ErrMissingFile = errors.New("input source missing")

	// ErrMalformedRecord is returned for a line that cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrUnknownIdentity is returned when a feed references an identity that
	// is not in the roster.
	ErrUnknownIdentity = errors.New("unknown employee identity")

	// ErrDuplicateIdentity is returned for a repeated roster identity.
	ErrDuplicateIdentity = errors.New("duplicate employee identity")

	// ErrNoEligiblePopulation is returned when a percentile is requested over
	// an empty population.
	ErrNoEligiblePopulation = errors.New("no eligible population")

	// ErrInvalidPolicy is returned when a bonus policy fails validation.
	ErrInvalidPolicy = errors.New("invalid bonus policy")

	// ErrNotFound is returned by stores when nothing has been persisted yet.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RecordError describes a line that was rejected while parsing a source.
type RecordError struct {
	Source string
	Line   int
	Reason string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s line %d: %s", e.Source, e.Line, e.Reason)
}

func (e *RecordError) Unwrap() error {
	return ErrMalformedRecord
}

// IdentityError describes a reference to an unknown or repeated identity.
type IdentityError struct {
	Source     string
	EmployeeID EmployeeID
	Line       int
	Duplicate  bool
}

func (e *IdentityError) Error() string {
	if e.Duplicate {
		return fmt.Sprintf("%s line %d: employee ID %d found multiple times", e.Source, e.Line, e.EmployeeID)
	}
	return fmt.Sprintf("%s line %d: employee ID %d not found", e.Source, e.Line, e.EmployeeID)
}

func (e *IdentityError) Unwrap() error {
	if e.Duplicate {
		return ErrDuplicateIdentity
	}
	return ErrUnknownIdentity
}

// MissingFileError wraps the underlying open failure of a source.
type MissingFileError struct {
	Source string
	Path   string
	Err    error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("%s: cannot open %s: %v", e.Source, e.Path, e.Err)
}

func (e *MissingFileError) Unwrap() []error {
	return []error{ErrMissingFile, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsMalformed returns true if the error marks a skipped, unparseable line.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedRecord)
}

// IsMissingFile returns true if a source could not be opened.
func IsMissingFile(err error) bool {
	return errors.Is(err, ErrMissingFile)
}
