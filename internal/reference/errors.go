package reference

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for reference data loading.
var (
	// ErrSchema indicates the reference table is missing required columns.
	ErrSchema = errors.New("reference table schema invalid")
	// ErrUnknownMode indicates a mode name has no entry in the mode table.
	ErrUnknownMode = errors.New("unknown transport mode")
	// ErrInvalidRow indicates a row could not be parsed.
	ErrInvalidRow = errors.New("invalid reference row")
	// ErrDuplicateMode indicates the same mode name is defined twice.
	ErrDuplicateMode = errors.New("duplicate transport mode")
)

// SchemaError lists the required columns absent from a reference table.
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("reference table %q missing required columns: %s",
		e.Source, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error {
	return ErrSchema
}

// UnknownModeError reports a mode name that is not in the mode table.
type UnknownModeError struct {
	Mode string
	// RouteID is set when the mode was referenced by a known route.
	RouteID string
}

func (e *UnknownModeError) Error() string {
	if e.RouteID != "" {
		return fmt.Sprintf("route %s references unknown transport mode %q", e.RouteID, e.Mode)
	}
	return fmt.Sprintf("unknown transport mode %q", e.Mode)
}

func (e *UnknownModeError) Unwrap() error {
	return ErrUnknownMode
}

// RowError describes a cell that failed to parse.
type RowError struct {
	Row    int // 1-based, excluding the header
	Column string
	Value  string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d column %s value %q: %v", e.Row, e.Column, e.Value, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}
