// Package validation provides categorized validation reports for scenario
// configurations and the canonical API error envelope.
package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Level indicates the severity of a validation issue.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
)

// Issue represents a single validation problem.
type Issue struct {
	Level       Level  `json:"level"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	JSONPointer string `json:"json_pointer,omitempty"`
	Remediation string `json:"remediation,omitempty"`
}

// Report contains the results of validating a configuration. All issues
// are surfaced together, not one at a time.
type Report struct {
	OK       bool    `json:"ok"`
	Errors   []Issue `json:"errors"`
	Warnings []Issue `json:"warnings"`
}

// NewReport creates a new empty report.
func NewReport() *Report {
	return &Report{
		OK:       true,
		Errors:   []Issue{},
		Warnings: []Issue{},
	}
}

// AddError adds an error-level issue to the report.
func (r *Report) AddError(code, message, jsonPointer string) {
	r.OK = false
	r.Errors = append(r.Errors, Issue{
		Level:       LevelError,
		Code:        code,
		Message:     message,
		JSONPointer: jsonPointer,
	})
}

// AddWarning adds a warning-level issue to the report.
func (r *Report) AddWarning(code, message, jsonPointer string) {
	r.Warnings = append(r.Warnings, Issue{
		Level:       LevelWarning,
		Code:        code,
		Message:     message,
		JSONPointer: jsonPointer,
	})
}

// Merge combines another report into this one.
func (r *Report) Merge(other *Report) {
	if other == nil {
		return
	}
	if !other.OK {
		r.OK = false
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// HasErrors returns true if there are any error-level issues.
func (r *Report) HasErrors() bool {
	return len(r.Errors) > 0
}

// String returns a human-readable summary of the report.
func (r *Report) String() string {
	if r.OK && len(r.Warnings) == 0 {
		return "Validation passed"
	}

	var sb strings.Builder
	if !r.OK {
		sb.WriteString(fmt.Sprintf("Validation failed with %d error(s):\n", len(r.Errors)))
	} else {
		sb.WriteString(fmt.Sprintf("Validation passed with %d warning(s):\n", len(r.Warnings)))
	}
	for _, e := range r.Errors {
		sb.WriteString(fmt.Sprintf("  [ERROR] %s: %s", e.Code, e.Message))
		if e.JSONPointer != "" {
			sb.WriteString(fmt.Sprintf(" (at %s)", e.JSONPointer))
		}
		sb.WriteString("\n")
	}
	for _, w := range r.Warnings {
		sb.WriteString(fmt.Sprintf("  [WARN] %s: %s", w.Code, w.Message))
		if w.JSONPointer != "" {
			sb.WriteString(fmt.Sprintf(" (at %s)", w.JSONPointer))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Validation issue codes for scenario configuration.
const (
	CodeRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	CodeInvalidFormat        = "INVALID_FORMAT"
	CodeRangeViolation       = "RANGE_VIOLATION"
	CodeMixSumInvalid        = "MIX_SUM_INVALID"
	CodeFrontShareInvalid    = "FRONT_SHARE_INVALID"
	CodeNationalitySum       = "NATIONALITY_SUM_INVALID"
	CodeFacilityRateInvalid  = "FACILITY_RATE_INVALID"
	CodeEnumViolation        = "ENUM_VIOLATION"
	CodeBaseDateInvalid      = "BASE_DATE_INVALID"
	CodeQuotaExceeded        = "QUOTA_EXCEEDED"
	CodePolytraumaInvalid    = "POLYTRAUMA_RATE_INVALID"
	CodeWarfareUnsupported   = "WARFARE_PATTERN_UNSUPPORTED"
	CodeOutputInvalid        = "OUTPUT_CONFIG_INVALID"
	CodeEncryptionPassword   = "ENCRYPTION_PASSWORD_REQUIRED"
)

// ErrorEnvelope represents the canonical API error response format.
type ErrorEnvelope struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the details of an error.
type ErrorDetail struct {
	ErrorType    string                 `json:"error_type"`
	ErrorCode    string                 `json:"error_code"`
	ErrorMessage string                 `json:"error_message"`
	Retryable    bool                   `json:"retryable"`
	Details      map[string]interface{} `json:"details,omitempty"`
}

// API error types.
const (
	ErrorTypeInvalidArgument   = "invalid_argument"
	ErrorTypeNotFound          = "not_found"
	ErrorTypeUnauthorized      = "unauthorized"
	ErrorTypeResourceExhausted = "resource_exhausted"
	ErrorTypeConflict          = "conflict"
	ErrorTypeInternal          = "internal"
)

// NewValidationEnvelope creates an error envelope for validation failures.
func NewValidationEnvelope(report *Report) *ErrorEnvelope {
	issues := make([]map[string]interface{}, 0, len(report.Errors))
	for _, e := range report.Errors {
		issue := map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		}
		if e.JSONPointer != "" {
			issue["json_pointer"] = e.JSONPointer
		}
		issues = append(issues, issue)
	}

	return &ErrorEnvelope{
		Error: ErrorDetail{
			ErrorType:    ErrorTypeInvalidArgument,
			ErrorCode:    "CONFIG_VALIDATION",
			ErrorMessage: "Scenario configuration validation failed",
			Retryable:    false,
			Details: map[string]interface{}{
				"issues": issues,
			},
		},
	}
}

// ToJSON serializes the error envelope to JSON.
func (e *ErrorEnvelope) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// Error is an error type that wraps a validation report.
type Error struct {
	Report *Report
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Report.String()
}

// ErrorFromReport creates an Error from a report, or nil if it passed.
func ErrorFromReport(report *Report) error {
	if report.OK {
		return nil
	}
	return &Error{Report: report}
}
