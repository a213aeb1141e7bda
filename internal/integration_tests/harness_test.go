package integration_tests

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/phasegrid/internal/app"
	"github.com/specialistvlad/phasegrid/internal/testutil"
	"github.com/stretchr/testify/require"
)

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Output    string
	LogOutput string
	Err       error
	App       *app.App
}

// WriteProject writes files into a fresh temporary directory and returns
// its path. Names may contain subdirectories.
func WriteProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

// RunIntegrationTest writes files to a temporary project directory, builds
// an App over it and runs it with a background context. cfg.ProjectPaths
// defaults to that directory.
func RunIntegrationTest(t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithContext(context.Background(), t, files, cfg, opts...)
}

// RunIntegrationTestWithContext is RunIntegrationTest with a caller-provided
// context.
func RunIntegrationTestWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config, opts ...app.Option) *HarnessResult {
	t.Helper()
	return harness(t, files, cfg, opts, func(a *app.App) error { return a.Run(ctx) })
}

// ValidateProject is the harness for the validate-only path.
func ValidateProject(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()
	return harness(t, files, cfg, nil, func(a *app.App) error { return a.Validate(context.Background()) })
}

func harness(t *testing.T, files map[string]string, cfg app.Config, opts []app.Option, act func(*app.App) error) *HarnessResult {
	t.Helper()

	if len(cfg.ProjectPaths) == 0 {
		cfg.ProjectPaths = []string{WriteProject(t, files)}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	appConfig, err := app.NewConfig(cfg)
	require.NoError(t, err)

	out := &bytes.Buffer{}
	logs := &testutil.SafeBuffer{}
	opts = append(opts, app.WithLogWriter(logs))

	t.Cleanup(func() {
		if os.Getenv("PHASEGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	testApp, err := app.NewApp(out, appConfig, nil, opts...)
	if err != nil {
		return &HarnessResult{LogOutput: logs.String(), Err: err}
	}

	runErr := act(testApp)
	return &HarnessResult{
		Output:    out.String(),
		LogOutput: logs.String(),
		Err:       runErr,
		App:       testApp,
	}
}
