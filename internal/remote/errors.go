package remote

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
)

// ErrMissingProject is wrapped by the IdentityError returned when an action
// is attempted without a project id.
var ErrMissingProject = errors.New("no project id")

// IdentityError means the project or session identity is missing or was
// rejected. It is fatal to the action but not to the session.
type IdentityError struct {
	Phase      phase.Phase
	Action     phasestate.Action
	StatusCode int
	Message    string
	Err        error
}

func (e *IdentityError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: identity rejected (HTTP %d): %s; please sign in again", e.Action, e.Phase, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s: identity error: %s; please sign in again", e.Action, e.Phase, msg)
}

func (e *IdentityError) Unwrap() error { return e.Err }

// TransportError means the request did not complete successfully: the
// service was unreachable, timed out, answered with a non-2xx status or
// returned a malformed payload. It is never retried automatically.
type TransportError struct {
	Phase      phase.Phase
	Action     phasestate.Action
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s failed (HTTP %d): %s", e.Action, e.Phase, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Action, e.Phase, msg)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsIdentity reports whether err is an identity error.
func IsIdentity(err error) bool {
	var ie *IdentityError
	return errors.As(err, &ie)
}

// IsTransport reports whether err is a transport error.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
