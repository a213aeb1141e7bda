package pipeline

import (
	"context"
	"fmt"

	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/dag"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
)

// topology holds the phase dependency graph and the reachability sets
// derived from it. It is immutable once built.
type topology struct {
	graph      *dag.Graph
	order      []phase.Phase
	upstream   map[phase.Phase][]phase.Phase
	downstream map[phase.Phase][]phase.Phase
}

func newTopology() (*topology, error) {
	g := dag.New()
	for _, p := range phase.All() {
		g.AddNode(p.String())
	}
	chain := phase.Chain()
	for i := 1; i < len(chain); i++ {
		if err := g.AddEdge(chain[i-1].String(), chain[i].String()); err != nil {
			return nil, err
		}
	}
	if err := g.AddEdge(phase.Source.String(), phase.Optimiser.String()); err != nil {
		return nil, err
	}
	if err := g.DetectCycles(); err != nil {
		return nil, err
	}

	t := &topology{
		graph:      g,
		upstream:   make(map[phase.Phase][]phase.Phase),
		downstream: make(map[phase.Phase][]phase.Phase),
	}
	ids, err := g.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	if t.order, err = parseAll(ids); err != nil {
		return nil, err
	}
	for _, p := range phase.All() {
		up, err := g.Ancestors(p.String())
		if err != nil {
			return nil, err
		}
		down, err := g.Descendants(p.String())
		if err != nil {
			return nil, err
		}
		if t.upstream[p], err = parseAll(up); err != nil {
			return nil, err
		}
		if t.downstream[p], err = parseAll(down); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func parseAll(ids []string) ([]phase.Phase, error) {
	out := make([]phase.Phase, 0, len(ids))
	for _, id := range ids {
		p, err := phase.Parse(id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Upstream returns every phase p transitively depends on, in pipeline order.
func (s *Session) Upstream(p phase.Phase) []phase.Phase {
	return append([]phase.Phase(nil), s.topo.upstream[p]...)
}

// Downstream returns every phase that transitively depends on p, in
// pipeline order.
func (s *Session) Downstream(p phase.Phase) []phase.Phase {
	return append([]phase.Phase(nil), s.topo.downstream[p]...)
}

// blockers returns the upstream phases of p that are not Generated.
func (s *Session) blockers(p phase.Phase) []phase.Phase {
	var out []phase.Phase
	for _, u := range s.topo.upstream[p] {
		if s.stores[u].Status() != phasestate.Generated {
			out = append(out, u)
		}
	}
	return out
}

// IsUnlocked reports whether every phase p depends on is Generated. Source
// has no upstream and is always unlocked.
func (s *Session) IsUnlocked(p phase.Phase) bool {
	if !p.Valid() {
		return false
	}
	return len(s.blockers(p)) == 0
}

// CanRun reports whether action may start on p now. Submitting needs p to
// be unlocked. Generating additionally needs an accepted submission.
func (s *Session) CanRun(p phase.Phase, action phasestate.Action) error {
	st, err := s.store(p)
	if err != nil {
		return err
	}
	if b := s.blockers(p); len(b) > 0 {
		return fmt.Errorf("%w: %s waits for %v", ErrLocked, p, b)
	}
	switch action {
	case phasestate.ActionSubmit:
		return nil
	case phasestate.ActionGenerate:
		if !st.CanGenerate() {
			return fmt.Errorf("%w: %s is %s", ErrNotSubmitted, p, st.Status())
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", action)
}

// OnUpstreamChanged invalidates everything downstream of p. Each downstream
// phase that holds a submission (or an in-flight request, or an error from
// one) is reset to Idle and loses its artifact. Phases that are only being
// configured keep their status. It returns the phases that were reset.
func (s *Session) OnUpstreamChanged(ctx context.Context, p phase.Phase) []phase.Phase {
	var reset []phase.Phase
	for _, d := range s.topo.downstream[p] {
		st := s.stores[d]
		switch st.Status() {
		case phasestate.Idle, phasestate.Configuring:
			continue
		}
		st.Reset()
		s.metrics.Invalidated(d.String())
		reset = append(reset, d)
	}
	if len(reset) > 0 {
		ctxlog.FromContext(ctx).Debug("Invalidated downstream phases.", "session", s.id, "upstream", p.String(), "reset", fmt.Sprint(reset))
	}
	return reset
}
