package tabular

import "errors"

var (
	// ErrCompression is returned when a ".gz" file is not valid gzip.
	ErrCompression = errors.New("invalid gzip stream")
	// ErrInvalidValue is returned when a cell cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")
	// ErrEmptyID is returned when a required identifier cell is blank.
	ErrEmptyID = errors.New("empty identifier")
)
