package core

// errors.go defines the failure taxonomy for the pipeline and the mapping
// from technical errors to user-facing messages.
//
// Error codes are grouped by category so users can quote them to support:
//
//	VAL001 - Required columns missing from the CSV header
//	VAL002 - A data row failed validation (empty field, bad number,
//	         malformed CSV)
//	DS001  - Requested dataset does not exist
//	RPT001 - Report generation failed
//	SYS001 - Anything else

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned (wrapped) when a dataset id does not exist in
// the store. It is never silently substituted with an empty dataset.
var ErrNotFound = errors.New("dataset not found")

// SchemaError rejects a whole upload whose header lacks required columns.
type SchemaError struct {
	Missing []string // column names, in RequiredColumns order
}

func (e *SchemaError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowParseError rejects a whole upload because one data row failed
// validation. Row is the 1-based line number including the header.
type RowParseError struct {
	Row    int
	Field  string
	Value  string
	Reason string
}

func (e *RowParseError) Error() string {
	switch {
	case e.Field == "" && e.Row == 0:
		return e.Reason
	case e.Field == "":
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	case e.Value == "":
		return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Field, e.Reason)
	default:
		return fmt.Sprintf("row %d, column %q: %s: %q", e.Row, e.Field, e.Reason, e.Value)
	}
}

// RenderError wraps a failure during report generation. Rendering never
// mutates stored data, so ingestion state is unaffected.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return "render report: " + e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// IsValidation reports whether err is an upload validation failure
// (schema or row level) as opposed to an internal error.
func IsValidation(err error) bool {
	var se *SchemaError
	var re *RowParseError
	return errors.As(err, &se) || errors.As(err, &re)
}

// UserMessage is a user-friendly rendering of an error with a support
// reference code and a suggested action.
type UserMessage struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
}

// MapError converts a pipeline error into a UserMessage. Technical detail
// stays in logs; clients get the sanitized form.
func MapError(err error) UserMessage {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return UserMessage{
			Code:    "VAL001",
			Message: "Required columns are missing: " + strings.Join(schemaErr.Missing, ", "),
			Action:  "Check that the CSV header matches the template exactly, including capitalization",
		}
	}

	var rowErr *RowParseError
	if errors.As(err, &rowErr) {
		return UserMessage{
			Code:    "VAL002",
			Message: "The file was rejected: " + rowErr.Error(),
			Action:  "Fix the reported row and upload the file again",
		}
	}

	if errors.Is(err, ErrNotFound) {
		return UserMessage{
			Code:    "DS001",
			Message: "Dataset not found",
			Action:  "It may have been uploaded in a different environment; check the id",
		}
	}

	var renderErr *RenderError
	if errors.As(err, &renderErr) {
		return UserMessage{
			Code:    "RPT001",
			Message: "Report generation failed",
			Action:  "Please try again; the dataset itself is unaffected",
		}
	}

	return UserMessage{
		Code:    "SYS001",
		Message: "An unexpected error occurred",
		Action:  "Please try again in a few moments",
	}
}
