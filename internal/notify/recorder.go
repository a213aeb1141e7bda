package notify

import (
	"context"
	"sync"
)

// Recorder keeps every published event in memory. It backs the CLI's
// event trace and is handy in tests.
type Recorder struct {
	mu     sync.Mutex
	events []PhaseEvent
}

func (r *Recorder) Publish(_ context.Context, ev PhaseEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of the recorded events in publish order.
func (r *Recorder) Events() []PhaseEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]PhaseEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Multi fans events out to several publishers. The first error is returned
// after every publisher has been tried.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev PhaseEvent) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
