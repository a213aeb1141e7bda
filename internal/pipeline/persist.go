package pipeline

import (
	"context"
	"fmt"

	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/snapshot"
)

// Snapshot captures every phase so the session can be rehydrated later.
func (s *Session) Snapshot() (snapshot.Snapshot, error) {
	snap := snapshot.Snapshot{
		ProjectID: s.ProjectID(),
		SessionID: s.id,
		SavedAt:   s.now().UTC(),
		Phases:    make([]snapshot.Record, 0, len(s.topo.order)),
	}
	for _, p := range s.topo.order {
		rec, err := snapshot.FromState(s.stores[p].State())
		if err != nil {
			return snapshot.Snapshot{}, fmt.Errorf("failed to snapshot session: %w", err)
		}
		snap.Phases = append(snap.Phases, rec)
	}
	return snap, nil
}

// Restore replaces the state of every phase listed in snap. In-flight
// statuses are rolled back because their requests died with the process
// that issued them, and any phase whose upstream is no longer Generated
// afterwards is reset. Phases missing from snap are left alone. Every record
// is decoded and checked before any phase changes, so a rejected snapshot
// leaves the session as it was.
func (s *Session) Restore(ctx context.Context, snap snapshot.Snapshot) error {
	if current := s.ProjectID(); snap.ProjectID != "" && current != "" && snap.ProjectID != current {
		return fmt.Errorf("snapshot belongs to project %q, session is bound to %q", snap.ProjectID, current)
	}

	states := make(map[phase.Phase]phasestate.State, len(snap.Phases))
	for _, rec := range snap.Phases {
		st, err := rec.State()
		if err != nil {
			return fmt.Errorf("failed to decode snapshot: %w", err)
		}
		if _, dup := states[st.Phase]; dup {
			return fmt.Errorf("snapshot lists %s twice", st.Phase)
		}
		if _, ok := s.stores[st.Phase]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownPhase, st.Phase)
		}
		if _, err := phasestate.Rehydrate(st); err != nil {
			return fmt.Errorf("failed to restore %s: %w", st.Phase, err)
		}
		states[st.Phase] = st
	}

	s.cacheMu.Lock()
	err := s.cache.Clear(ctx)
	s.cacheMu.Unlock()
	if err != nil {
		return err
	}
	for _, p := range s.topo.order {
		st, ok := states[p]
		if !ok {
			continue
		}
		if err := s.stores[p].Restore(st); err != nil {
			return fmt.Errorf("failed to restore %s: %w", p, err)
		}
	}
	if s.ProjectID() == "" {
		s.SetProjectID(snap.ProjectID)
	}

	for _, p := range s.topo.order {
		st := s.stores[p]
		switch st.Status() {
		case phasestate.Idle, phasestate.Configuring:
			continue
		}
		if !s.IsUnlocked(p) {
			st.Reset()
			continue
		}
		if err := s.cacheRestored(ctx, st); err != nil {
			return err
		}
	}
	ctxlog.FromContext(ctx).Info("Pipeline session restored.", "session", s.id, "from_session", snap.SessionID, "phases", len(states))
	return nil
}

func (s *Session) cacheRestored(ctx context.Context, st *phasestate.Store) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if st.Status() != phasestate.Generated {
		return nil
	}
	a := st.Artifact()
	if a == nil {
		return nil
	}
	return s.cache.Set(ctx, st.Phase(), a)
}
