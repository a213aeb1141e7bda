// Package inmemorycache provides an ephemeral, thread-safe, in-memory
// implementation of the artifactcache.Cache interface.
//
// It uses sync.Map because the key space is small and fixed (one key per
// phase) while values are replaced on every generate, and writes to
// different phases happen from independent goroutines.
package inmemorycache

import (
	"context"
	"errors"
	"sync"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/artifactcache"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/phase"
)

// Store is an in-memory implementation of artifactcache.Cache.
type Store struct {
	artifacts sync.Map // Key: phase.Phase, Value: artifact.Artifact
}

// New creates a new, empty in-memory artifact cache.
func New() artifactcache.Cache {
	return &Store{}
}

// Get retrieves the cached artifact of a phase.
func (s *Store) Get(ctx context.Context, p phase.Phase) (artifact.Artifact, bool) {
	v, ok := s.artifacts.Load(p)
	if !ok {
		return nil, false
	}
	return v.(artifact.Artifact), true
}

// Set records the artifact of a phase.
func (s *Store) Set(ctx context.Context, p phase.Phase, a artifact.Artifact) error {
	if a == nil {
		return errors.New("cannot cache a nil artifact")
	}
	s.artifacts.Store(p, a)
	ctxlog.FromContext(ctx).Debug("Artifact cached.", "phase", p.String(), "kind", a.Kind())
	return nil
}

// Delete removes the artifact of a phase.
func (s *Store) Delete(ctx context.Context, p phase.Phase) error {
	s.artifacts.Delete(p)
	return nil
}

// Clear removes every cached artifact.
func (s *Store) Clear(ctx context.Context) error {
	s.artifacts.Clear()
	return nil
}
