// Package errors provides severity-aware error types for the valuation core.
package errors

import "fmt"

// Severity indicates error impact level.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// ValuationError is a structured error with context.
type ValuationError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Field       string   `json:"field,omitempty"`
	Recoverable bool     `json:"recoverable"`
	cause       error
}

func (e *ValuationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s: %s (field: %s)", e.Severity, e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.Code, e.Message)
}

func (e *ValuationError) Unwrap() error {
	return e.cause
}

// Error codes
const (
	ErrCodeDecodeFailed   = "DECODE_FAILED"
	ErrCodeIncompleteSpec = "INCOMPLETE_SPEC"
	ErrCodeSchemaMismatch = "SCHEMA_MISMATCH"
	ErrCodeDatasetLoad    = "DATASET_LOAD"
	ErrCodeArtifactLoad   = "ARTIFACT_LOAD"
)

// NewDecodeFailure creates an error for a failed VIN decode. The failure is
// recoverable: the caller falls back to the manual input path.
func NewDecodeFailure(vin string, cause error) *ValuationError {
	msg := "VIN decode failed"
	if cause != nil {
		msg = fmt.Sprintf("VIN decode failed: %s", cause.Error())
	}
	return &ValuationError{
		Code:        ErrCodeDecodeFailed,
		Message:     msg,
		Severity:    SeverityWarning,
		Field:       vin,
		Recoverable: true,
		cause:       cause,
	}
}

// NewIncompleteSpec creates an error for an attribute whose option list is
// empty after fallback widening. The estimate must not proceed.
func NewIncompleteSpec(field string) *ValuationError {
	return &ValuationError{
		Code:        ErrCodeIncompleteSpec,
		Message:     fmt.Sprintf("no valid options for %s; vehicle specification is incomplete", field),
		Severity:    SeverityError,
		Field:       field,
		Recoverable: false,
	}
}

// NewSchemaMismatch creates an error for a feature record the trained
// pipeline rejects. Fatal to the one estimate request only.
func NewSchemaMismatch(column, detail string) *ValuationError {
	return &ValuationError{
		Code:        ErrCodeSchemaMismatch,
		Message:     fmt.Sprintf("feature record does not match pipeline schema: %s", detail),
		Severity:    SeverityError,
		Field:       column,
		Recoverable: false,
	}
}

// NewDatasetLoad wraps a failure while loading the historical sales dataset.
func NewDatasetLoad(detail string, cause error) *ValuationError {
	return &ValuationError{
		Code:        ErrCodeDatasetLoad,
		Message:     fmt.Sprintf("dataset load failed: %s", detail),
		Severity:    SeverityFatal,
		Recoverable: false,
		cause:       cause,
	}
}

// NewArtifactLoad wraps a failure while loading the pipeline artifact.
func NewArtifactLoad(detail string, cause error) *ValuationError {
	return &ValuationError{
		Code:        ErrCodeArtifactLoad,
		Message:     fmt.Sprintf("pipeline artifact load failed: %s", detail),
		Severity:    SeverityFatal,
		Recoverable: false,
		cause:       cause,
	}
}
