package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel kinds for input and computation errors. Typed errors below unwrap to these.
var (
	ErrMissingInput  = errors.New("missing input")
	ErrSchema        = errors.New("schema error")
	ErrMissingWage   = errors.New("missing wage")
	ErrInvalidWeight = errors.New("invalid relatedness weight")
)

// MissingInputError reports an absent or empty required table.
type MissingInputError struct {
	Table  string
	Region *Region // set when a requested region has no rows
}

func (e *MissingInputError) Error() string {
	if e.Region != nil {
		return fmt.Sprintf("%s: table %q has no rows for region %s", ErrMissingInput, e.Table, e.Region)
	}
	return fmt.Sprintf("%s: table %q is absent or empty", ErrMissingInput, e.Table)
}

func (e *MissingInputError) Unwrap() error { return ErrMissingInput }

// SchemaError reports required columns absent from an input table.
type SchemaError struct {
	Table   string
	Columns []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: table %q is missing required columns [%s]", ErrSchema, e.Table, strings.Join(e.Columns, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// MissingWageError reports a job in the matrix without a usable wage.
type MissingWageError struct {
	JobID  string
	Region Region
}

func (e *MissingWageError) Error() string {
	return fmt.Sprintf("%s: job %q in region %s", ErrMissingWage, e.JobID, e.Region)
}

func (e *MissingWageError) Unwrap() error { return ErrMissingWage }
