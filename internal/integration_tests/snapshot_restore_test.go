package integration_tests

import (
	"strings"
	"testing"

	"github.com/specialistvlad/phasegrid/internal/app"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestRun_RestoreSkipsGeneratedPhases saves a snapshot on the first run and
// resumes from it on the second, so nothing is generated again.
func TestRun_RestoreSkipsGeneratedPhases(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	projectDir := WriteProject(t, map[string]string{"project.hcl": testutil.ProjectHCL})
	cfg := app.Config{ProjectPaths: []string{projectDir}, SnapshotDir: t.TempDir()}

	first := RunIntegrationTest(t, nil, cfg, app.WithService(testutil.NewFakeService()))
	require.NoError(t, first.Err)
	require.Contains(t, first.LogOutput, "Snapshot saved.")

	// --- Act ---
	cfg.Restore = true
	svc := testutil.NewFakeService()
	second := RunIntegrationTest(t, nil, cfg, app.WithService(svc))

	// --- Assert ---
	require.NoError(t, second.Err)
	assert.Contains(t, second.LogOutput, "Session restored from snapshot.")
	assert.Empty(t, svc.Calls(), "every phase was restored as generated")
	assert.Contains(t, second.Output, "== translator (translated_code) ==")
}

// TestRun_RestoreRegeneratesEditedPhases changes the grammar between runs:
// the parser and everything after it run again, the lexer does not.
func TestRun_RestoreRegeneratesEditedPhases(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	snapshots := t.TempDir()
	firstDir := WriteProject(t, map[string]string{"project.hcl": testutil.ProjectHCL})
	first := RunIntegrationTest(t, nil, app.Config{ProjectPaths: []string{firstDir}, SnapshotDir: snapshots},
		app.WithService(testutil.NewFakeService()))
	require.NoError(t, first.Err)

	edited := strings.Replace(testutil.ProjectHCL, `rule "E" { rhs = "num" }`, `rule "E" { rhs = "num id" }`, 1)
	secondDir := WriteProject(t, map[string]string{"project.hcl": edited})

	// --- Act ---
	svc := testutil.NewFakeService()
	second := RunIntegrationTest(t, nil, app.Config{ProjectPaths: []string{secondDir}, SnapshotDir: snapshots, Restore: true},
		app.WithService(svc))

	// --- Assert ---
	require.NoError(t, second.Err)
	assert.Empty(t, svc.CallsFor(phase.Lexer, phasestate.ActionGenerate))
	assert.Empty(t, svc.CallsFor(phase.Optimiser, phasestate.ActionGenerate))
	for _, p := range []phase.Phase{phase.Parser, phase.Analyser, phase.Translator} {
		assert.Len(t, svc.CallsFor(p, phasestate.ActionGenerate), 1, "generates for %s", p)
	}
}

// TestRun_RestoreWithoutSnapshotStartsFresh treats a missing snapshot as
// an empty one.
func TestRun_RestoreWithoutSnapshotStartsFresh(t *testing.T) {
	t.Parallel()

	// --- Act ---
	svc := testutil.NewFakeService()
	result := RunIntegrationTest(t, map[string]string{"project.hcl": testutil.ProjectHCL},
		app.Config{SnapshotDir: t.TempDir(), Restore: true}, app.WithService(svc))

	// --- Assert ---
	require.NoError(t, result.Err)
	assert.Contains(t, result.LogOutput, "No snapshot to restore.")
	assert.Len(t, svc.CallsFor(phase.Translator, phasestate.ActionGenerate), 1)
}
