// Package remote defines the contract between the pipeline and the remote
// compiler service, and provides an HTTP implementation of it.
//
// The service is an opaque collaborator: the pipeline hands it a phase's
// configuration and later asks it to generate that phase's artifact. Both
// calls are idempotent from the pipeline's point of view. Every failure is
// returned as either an *IdentityError (the project or session identity is
// missing or rejected; the user must re-authenticate) or a *TransportError
// (anything else; the user may retry).
package remote

import (
	"context"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Service is the Remote Submission Adapter.
type Service interface {
	// SubmitConfiguration stores cfg as the project's configuration for p.
	SubmitConfiguration(ctx context.Context, p phase.Phase, projectID string, cfg rules.Configuration) error

	// GenerateArtifact runs phase p server-side using the last submitted
	// configuration and returns its artifact.
	GenerateArtifact(ctx context.Context, p phase.Phase, projectID string) (artifact.Artifact, error)
}

// ExpectedKind returns the artifact kind phase p produces.
func ExpectedKind(p phase.Phase) artifact.Kind {
	switch p {
	case phase.Source:
		return artifact.KindSourceText
	case phase.Lexer:
		return artifact.KindTokenSet
	case phase.Parser:
		return artifact.KindSyntaxTree
	case phase.Analyser:
		return artifact.KindSymbolTable
	case phase.Translator, phase.Optimiser:
		return artifact.KindTranslatedCode
	}
	return ""
}
