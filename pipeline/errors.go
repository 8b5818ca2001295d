package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// PreconditionError reports a malformed submission. Extract returns it
// before starting the run; every other deficiency degrades into flags on
// the result instead.
type PreconditionError struct {
	err error
}

// NewPreconditionError wraps an error as a precondition violation.
func NewPreconditionError(err error) error {
	return &PreconditionError{err: err}
}

func (e *PreconditionError) Error() string {
	return "precondition: " + e.err.Error()
}

func (e *PreconditionError) Unwrap() error {
	return e.err
}

// IsPrecondition reports whether err is a precondition error anywhere in
// its chain.
func IsPrecondition(err error) bool {
	var pe *PreconditionError
	return errors.As(err, &pe)
}

// GatheringFailure reports a segment whose model call failed or returned
// an unusable reply. The segment is excluded from evidence; the run
// continues without it.
type GatheringFailure struct {
	FileID       string
	SegmentIndex int
	Err          error
}

func (e *GatheringFailure) Error() string {
	return fmt.Sprintf("gathering failed for segment %d of file %s: %v",
		e.SegmentIndex, e.FileID, e.Err)
}

func (e *GatheringFailure) Unwrap() error {
	return e.Err
}

// ValidationFailure reports one failed field or cross-field check. It is
// recorded on the result and may trigger a targeted correction.
type ValidationFailure struct {
	Field  string
	Errors []string
}

func (e *ValidationFailure) Error() string {
	return fmt.Sprintf("validation failed for %s: %s",
		e.Field, strings.Join(e.Errors, "; "))
}

// ContaminationDetected reports entity separation violations. Detection
// always forces manual review; the candidates are never repaired
// automatically.
type ContaminationDetected struct {
	Findings int
}

func (e *ContaminationDetected) Error() string {
	return fmt.Sprintf("%d entity separation violation(s) detected", e.Findings)
}

// CorrectionExhausted reports a field whose correction budget ran out.
// The field stays invalid and the run stays flagged.
type CorrectionExhausted struct {
	Field    string
	Attempts int
}

func (e *CorrectionExhausted) Error() string {
	return fmt.Sprintf("correction budget exhausted for %s after %d attempt(s)",
		e.Field, e.Attempts)
}
