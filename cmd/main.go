package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/okian/jci/internal/domain/model"
)

// Exit codes for different failure modes.
const (
	ExitSuccess    = 0 // run finished
	ExitRunFailed  = 1 // run aborted on input or region errors
	ExitConfigFail = 2 // configuration or startup error
)

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		switch {
		case errors.Is(err, model.ErrMissingInput), errors.Is(err, model.ErrSchema),
			errors.Is(err, model.ErrMissingWage), errors.Is(err, model.ErrInvalidWeight):
			os.Exit(ExitRunFailed)
		default:
			os.Exit(ExitConfigFail)
		}
	}
	os.Exit(ExitSuccess)
}
