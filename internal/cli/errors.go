package cli

import (
	"errors"

	"github.com/specialistvlad/phasegrid/internal/remote"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Process exit codes.
const (
	ExitFailure   = 1
	ExitUsage     = 2
	ExitViolation = 3
	ExitIdentity  = 4
	ExitTransport = 5
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

func usageError(err error) error {
	return &ExitError{Code: ExitUsage, Message: err.Error(), Err: err}
}

// exitError maps a run failure onto its exit code. Violations win over
// remote failures when both are joined.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	code := ExitFailure
	switch {
	case isViolation(err):
		code = ExitViolation
	case remote.IsIdentity(err):
		code = ExitIdentity
	case remote.IsTransport(err):
		code = ExitTransport
	}
	return &ExitError{Code: code, Message: err.Error(), Err: err}
}

func isViolation(err error) bool {
	_, ok := rules.KindOf(err)
	return ok
}
