// Package errors defines the error kinds surfaced across the cache, parser,
// and workflow subsystems (§7). They carry enough context (archive key,
// file path, line/column) to turn into a single failure-file entry without
// the caller having to re-derive it.
package errors

import (
	"fmt"
	"time"
)

// Kind is one of the error categories enumerated in §7.
type Kind string

const (
	KindInputMissing       Kind = "input_missing"
	KindFormatCorruption   Kind = "format_corruption"
	KindUnrecoverable      Kind = "unrecoverable_archive"
	KindTransientIO        Kind = "transient_io"
	KindParseError         Kind = "parse_error"
	KindParseWarning       Kind = "parse_warning"
	KindTimeout            Kind = "timeout"
	KindValidationError    Kind = "validation_error"
	KindCancelled          Kind = "cancelled"
)

// Severity distinguishes a fatal condition from one that degrades a single
// unit of work without aborting the handler.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ArchiveError reports a failure tied to one PBO archive: corrupted
// headers, unsupported packing methods, or I/O failures during extraction.
type ArchiveError struct {
	Kind       Kind
	ArchiveKey string
	Operation  string
	Underlying error
	Timestamp  time.Time
}

func NewArchiveError(kind Kind, archiveKey, op string, err error) *ArchiveError {
	return &ArchiveError{
		Kind:       kind,
		ArchiveKey: archiveKey,
		Operation:  op,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *ArchiveError) Error() string {
	return fmt.Sprintf("%s: %s failed for %s: %v", e.Kind, e.Operation, e.ArchiveKey, e.Underlying)
}

func (e *ArchiveError) Unwrap() error { return e.Underlying }

// IsRecoverable reports whether a retry (e.g. after the archive or the
// requested pattern changes) could plausibly succeed. Unrecoverable
// archives never become recoverable short of an explicit cache purge.
func (e *ArchiveError) IsRecoverable() bool {
	return e.Kind == KindTransientIO
}

// ParseDiagnostic represents one entry in a preprocessor or parser warning
// list (§4.F, §4.G): a non-fatal condition plus enough position information
// to resolve against the origin file.
type ParseDiagnostic struct {
	Code     string // e.g. "PE12", "PE20"
	Severity Severity
	Message  string
	File     string
	Line     int
}

func (d ParseDiagnostic) String() string {
	if d.Code != "" {
		return fmt.Sprintf("%s:%d: [%s] %s (%s)", d.File, d.Line, d.Severity, d.Message, d.Code)
	}
	return fmt.Sprintf("%s:%d: [%s] %s", d.File, d.Line, d.Severity, d.Message)
}

// StageError wraps a failure raised by a workflow stage handler so the
// orchestrator can attach a single typed cause to the WorkflowResult
// (§4.K) without losing which stage produced it.
type StageError struct {
	Stage      string
	Kind       Kind
	Underlying error
	Timestamp  time.Time
}

func NewStageError(stage string, kind Kind, err error) *StageError {
	return &StageError{
		Stage:      stage,
		Kind:       kind,
		Underlying: err,
		Timestamp:  time.Now(),
	}
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed (%s): %v", e.Stage, e.Kind, e.Underlying)
}

func (e *StageError) Unwrap() error { return e.Underlying }

// UnitFailure describes one failed unit of work within a stage (one
// archive, one file, one scan job): logged at its own severity and also
// rolled up into the per-run failure file (§7).
type UnitFailure struct {
	Kind     Kind
	Severity Severity
	Path     string
	Message  string
}

// MultiError aggregates the per-unit failures that accumulate within a
// stage handler without aborting it (§7 propagation policy): a handler
// only fails outright when zero units succeed.
type MultiError struct {
	Errors []error
}

func NewMultiError(errs []error) *MultiError {
	filtered := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	return &MultiError{Errors: filtered}
}

func (e *MultiError) Error() string {
	switch len(e.Errors) {
	case 0:
		return "no errors"
	case 1:
		return e.Errors[0].Error()
	default:
		return fmt.Sprintf("%d errors: %v", len(e.Errors), e.Errors)
	}
}

func (e *MultiError) Unwrap() []error { return e.Errors }
