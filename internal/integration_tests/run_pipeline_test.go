package integration_tests

import (
	"errors"
	"strings"
	"testing"

	"github.com/specialistvlad/phasegrid/internal/app"
	"github.com/specialistvlad/phasegrid/internal/notify"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/remote"
	"github.com/specialistvlad/phasegrid/internal/rules"
	"github.com/specialistvlad/phasegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_DrivesEveryConfiguredPhase runs the fixture project end to end
// against a scripted compiler service.
func TestRun_DrivesEveryConfiguredPhase(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewFakeService()
	files := map[string]string{"project.hcl": testutil.ProjectHCL}

	// --- Act ---
	result := RunIntegrationTest(t, files, app.Config{}, app.WithService(svc))

	// --- Assert ---
	require.NoError(t, result.Err, "app.Run() returned an unexpected error")

	for _, p := range []phase.Phase{phase.Lexer, phase.Parser, phase.Analyser, phase.Translator, phase.Optimiser} {
		assert.Len(t, svc.CallsFor(p, phasestate.ActionSubmit), 1, "submits for %s", p)
		assert.Len(t, svc.CallsFor(p, phasestate.ActionGenerate), 1, "generates for %s", p)
	}
	require.Len(t, svc.CallsFor(phase.Source, phasestate.ActionSubmit), 1)
	assert.Empty(t, svc.CallsFor(phase.Source, phasestate.ActionGenerate), "source is generated locally")
	for _, c := range svc.Calls() {
		assert.Equal(t, "proj-1", c.ProjectID)
	}

	assert.Contains(t, result.Output, "== lexer (token_set) ==")
	assert.Contains(t, result.Output, "== translator (translated_code) ==")
	assert.Contains(t, result.Output, "== optimiser (translated_code) ==")
	assert.Regexp(t, `translator\s+generated`, result.Output)
	assert.Contains(t, result.LogOutput, "Pipeline finished.")
}

// TestRun_ChainRunsInOrder checks that every main-chain phase is submitted
// only after its predecessor generated.
func TestRun_ChainRunsInOrder(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewFakeService()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL}, app.Config{}, app.WithService(svc))

	// --- Assert ---
	require.NoError(t, result.Err)
	var chain []string
	for _, c := range svc.Calls() {
		if c.Phase == phase.Optimiser {
			continue
		}
		chain = append(chain, c.Phase.String()+":"+string(c.Action))
	}
	assert.Equal(t, []string{
		"source:submit",
		"lexer:submit", "lexer:generate",
		"parser:submit", "parser:generate",
		"analyser:submit", "analyser:generate",
		"translator:submit", "translator:generate",
	}, chain)
}

// TestRun_StopsAtFirstUnconfiguredPhase leaves everything after a missing
// phase locked without failing the run.
func TestRun_StopsAtFirstUnconfiguredPhase(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := `
		project "partial" { id = "proj-2" }
		source { code = "x" }
		lexer {
			token "id" { pattern = "[a-z]+" }
		}
		translator {
			target = "python"
		}
	`
	svc := testutil.NewFakeService()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"main.hcl": project}, app.Config{}, app.WithService(svc))

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Len(t, svc.CallsFor(phase.Lexer, phasestate.ActionGenerate), 1)
	assert.Empty(t, svc.CallsFor(phase.Translator, phasestate.ActionSubmit), "translator stays locked behind the parser")
	assert.Regexp(t, `translator\s+configuring`, result.Output)
	assert.Contains(t, result.LogOutput, "Phase not configured; stopping here.")
}

// TestRun_TransportFailureIsReported surfaces a failed remote call as a
// tagged transport error and an Error row in the status table.
func TestRun_TransportFailureIsReported(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewFakeService()
	svc.FailSubmit(phase.Analyser, errors.New("connection reset by peer"))

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL}, app.Config{}, app.WithService(svc))

	// --- Assert ---
	require.Error(t, result.Err)
	assert.True(t, remote.IsTransport(result.Err), "expected a transport error, got %v", result.Err)
	assert.Contains(t, result.Err.Error(), "submit analyser")
	assert.Regexp(t, `analyser\s+error\s+submit:`, result.Output)
	assert.Regexp(t, `parser\s+generated`, result.Output, "upstream work is kept")
	assert.Empty(t, svc.CallsFor(phase.Translator, phasestate.ActionSubmit))
}

// TestRun_InvalidGrammarNeverReachesTheService rejects the grammar locally.
func TestRun_InvalidGrammarNeverReachesTheService(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := strings.Replace(testutil.ProjectHCL, `start     = "S"`, `start     = "Program"`, 1)
	svc := testutil.NewFakeService()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": project}, app.Config{}, app.WithService(svc))

	// --- Assert ---
	require.Error(t, result.Err)
	kind, ok := rules.KindOf(result.Err)
	require.True(t, ok, "expected a violation, got %v", result.Err)
	assert.Equal(t, rules.StartSymbolNotInVariables, kind)
	assert.Empty(t, svc.CallsFor(phase.Parser, phasestate.ActionSubmit))
	assert.Regexp(t, `parser\s+configuring`, result.Output)
}

// TestRun_MissingProjectIDIsAnIdentityError fails before any request when
// neither the command line nor the project file names a project.
func TestRun_MissingProjectIDIsAnIdentityError(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	project := strings.Replace(testutil.ProjectHCL, `id = "proj-1"`, ``, 1)
	svc := testutil.NewFakeService()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": project}, app.Config{}, app.WithService(svc))

	// --- Assert ---
	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, remote.ErrMissingProject)
	assert.True(t, remote.IsIdentity(result.Err))
	assert.Empty(t, svc.Calls())
	assert.Contains(t, result.LogOutput, "No project id given")
}

// TestRun_CommandLineProjectWins overrides the project file's id.
func TestRun_CommandLineProjectWins(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewFakeService()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL},
		app.Config{ProjectID: "override"}, app.WithService(svc))

	// --- Assert ---
	require.NoError(t, result.Err)
	require.NotEmpty(t, svc.Calls())
	for _, c := range svc.Calls() {
		assert.Equal(t, "override", c.ProjectID)
	}
}

// TestRun_PublishesPhaseEvents records every transition of the run.
func TestRun_PublishesPhaseEvents(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	rec := &notify.Recorder{}

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL}, app.Config{},
		app.WithService(testutil.NewFakeService()), app.WithPublisher(rec))

	// --- Assert ---
	require.NoError(t, result.Err)
	var generated []phase.Phase
	for _, ev := range rec.Events() {
		assert.Equal(t, "proj-1", ev.Project)
		if ev.Status == phasestate.Generated {
			generated = append(generated, ev.Phase)
		}
	}
	assert.ElementsMatch(t, phase.All(), generated)
}

// TestRun_StrictLinkPolicyRejectsEmptyLinks applies the strict policy from
// the command line.
func TestRun_StrictLinkPolicyRejectsEmptyLinks(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	svc := testutil.NewFakeService()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL},
		app.Config{LinkPolicy: "strict"}, app.WithService(svc))

	// --- Assert ---
	require.Error(t, result.Err)
	kind, ok := rules.KindOf(result.Err)
	require.True(t, ok)
	assert.Equal(t, rules.IncompleteGrammarLink, kind)
	assert.Empty(t, svc.CallsFor(phase.Analyser, phasestate.ActionSubmit))
}

// TestRun_RecordsMetrics checks the App registry after a run.
func TestRun_RecordsMetrics(t *testing.T) {
	t.Parallel()

	// --- Act ---
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL}, app.Config{},
		app.WithService(testutil.NewFakeService()))

	// --- Assert ---
	require.NoError(t, result.Err)
	families, err := result.App.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["phasegrid_phase_transitions_total"])
	assert.True(t, names["phasegrid_remote_calls_total"])
}
