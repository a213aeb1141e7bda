package phasestate

import (
	"errors"
	"fmt"
	"strings"
)

// Status is the position of a phase in its lifecycle:
//
//	Idle → Configuring → Submitting → {Submitted | Error} → Generating → {Generated | Error}
type Status int

const (
	Idle Status = iota
	Configuring
	Submitting
	Submitted
	Generating
	Generated
	Error
)

var statusNames = [...]string{
	Idle:        "idle",
	Configuring: "configuring",
	Submitting:  "submitting",
	Submitted:   "submitted",
	Generating:  "generating",
	Generated:   "generated",
	Error:       "error",
}

func (s Status) String() string {
	if s < Idle || s > Error {
		return fmt.Sprintf("status(%d)", int(s))
	}
	return statusNames[s]
}

// InFlight reports whether a remote request is outstanding in this status.
func (s Status) InFlight() bool {
	return s == Submitting || s == Generating
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < Idle || s > Error {
		return nil, fmt.Errorf("unknown status %d", int(s))
	}
	return []byte(statusNames[s]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	name := strings.ToLower(string(text))
	for i, n := range statusNames {
		if n == name {
			*s = Status(i)
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", string(text))
}

// Action is a user-triggered phase operation that involves the remote service.
type Action string

const (
	ActionSubmit   Action = "submit"
	ActionGenerate Action = "generate"
)

var (
	// ErrInFlight is returned when an action is started while another
	// request for the same phase is still outstanding.
	ErrInFlight = errors.New("a request for this phase is already in flight")
	// ErrInvalidTransition is returned when an operation is not allowed
	// from the current status. Correct callers check first, so seeing this
	// error means a caller bug.
	ErrInvalidTransition = errors.New("invalid phase state transition")
	// ErrStale is returned when a completion arrives for a request that was
	// superseded by a reset, an edit or a newer request.
	ErrStale = errors.New("stale completion ignored")
)
