// Package artifactcache defines the interface for holding the most recent
// successfully generated artifact of each pipeline phase.
//
// # Why Artifact Cache Exists
//
// The phase state stores own the lifecycle of a phase, but downstream
// inspectors only need to read what upstream phases produced: the Parser
// reads the Lexer's token set to check its terminals, the Analyser reads the
// syntax tree, and so on. The cache is that read path. It is written by the
// pipeline coordinator after a successful generate and cleared for every
// phase the coordinator invalidates.
//
// # Lifecycle
//
//  1. **Created** once per pipeline session
//  2. **Written** after each successful generate
//  3. **Read** by inspectors and advisory checks
//  4. **Cleared** per phase on invalidation and entirely on pipeline clear
package artifactcache

import (
	"context"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
)

// Cache stores the latest artifact per phase.
//
// Implementations MUST be safe for concurrent use: different phases are
// generated concurrently and each writes its own key.
type Cache interface {
	// Get returns the artifact for p and true, or nil and false if none is cached.
	Get(ctx context.Context, p phase.Phase) (artifact.Artifact, bool)

	// Set records the artifact for p, replacing any previous one.
	Set(ctx context.Context, p phase.Phase, a artifact.Artifact) error

	// Delete removes the artifact for p. Deleting a missing key is not an error.
	Delete(ctx context.Context, p phase.Phase) error

	// Clear removes every artifact.
	Clear(ctx context.Context) error
}
