package api

import (
	"errors"
	"fmt"
	"net/http"

	repository "github.com/okian/jci/internal/adapters/repository"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest    = errors.New("bad request")
	ErrLimitExceeded = errors.New("limit exceeds maximum")
)

// OpError attaches the failing operation to an error.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string { return e.Op + ": " + e.Err.Error() }

func (e *OpError) Unwrap() error { return e.Err }

// NewKind returns an error of the given kind with detail for op.
func NewKind(op string, kind error, detail string) error {
	return &OpError{Op: op, Err: fmt.Errorf("%w: %s", kind, detail)}
}

// Wrap attaches op to err. It returns nil for a nil err.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Op: op, Err: err}
}

// writeUpstreamError maps errors from the read layer onto HTTP statuses.
func writeUpstreamError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", Wrap(op, err))
	case errors.Is(err, repository.ErrNoRun):
		writeError(w, http.StatusServiceUnavailable, "no_data", Wrap(op, err))
	case errors.Is(err, repository.ErrInvalidLimit), errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", Wrap(op, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}
