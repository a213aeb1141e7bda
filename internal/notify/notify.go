// Package notify publishes phase status changes to interested listeners,
// typically a canvas front end that redraws node badges.
package notify

import (
	"context"
	"time"

	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
)

// EventName is the socket.io event every PhaseEvent is emitted under.
const EventName = "phase_status"

// PhaseEvent describes one status transition of one phase.
type PhaseEvent struct {
	Session string            `json:"session"`
	Project string            `json:"project"`
	Phase   phase.Phase       `json:"phase"`
	From    phasestate.Status `json:"from"`
	Status  phasestate.Status `json:"status"`
	Action  phasestate.Action `json:"action,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	At      time.Time         `json:"at"`
}

// Publisher delivers phase events. Publish must not block for long; the
// pipeline calls it on the path of every transition.
type Publisher interface {
	Publish(ctx context.Context, ev PhaseEvent) error
	Close() error
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, PhaseEvent) error { return nil }
func (NopPublisher) Close() error                              { return nil }
