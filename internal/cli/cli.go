package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/specialistvlad/phasegrid/internal/app"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes the environment variable behind every flag: --log-level
// falls back to PHASEGRID_LOG_LEVEL, --remote to PHASEGRID_REMOTE.
const EnvPrefix = "PHASEGRID_"

// Options are the process-level collaborators of the command tree.
type Options struct {
	Out io.Writer
	// Err receives logs and error messages.
	Err io.Writer
	// LookupEnv reads environment fallbacks. Defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
	// AppOptions are passed to every App the commands build.
	AppOptions []app.Option
}

// flags holds every flag value; run and validate share the global ones.
type flags struct {
	format     string
	linkPolicy string
	logFormat  string
	logLevel   string

	remote          string
	project         string
	token           string
	timeout         time.Duration
	rateLimit       float64
	burst           int
	healthcheckPort int
	snapshotDir     string
	restore         bool
	notifyURL       string
	notifyNamespace string
}

// NewRootCommand builds the phasegrid command tree.
func NewRootCommand(opts Options) *cobra.Command {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Err == nil {
		opts.Err = os.Stderr
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	f := &flags{}

	rootCmd := &cobra.Command{
		Use:   "phasegrid",
		Short: "Drive a compiler pipeline project through a remote compiler service",
		Long: `phasegrid loads a project of compiler phase rule sets (source, lexer,
parser, analyser, translator, optimiser), validates them locally and runs
every phase against a remote compiler service in pipeline order.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return applyEnv(cmd.Flags(), opts.LookupEnv)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetOut(opts.Out)
	rootCmd.SetErr(opts.Err)
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&f.format, "format", "auto", "Project file format: 'auto', 'hcl' or 'yaml'.")
	pf.StringVar(&f.linkPolicy, "link-policy", "", "Grammar-link policy: 'permissive' or 'strict'. Overrides the project file.")
	pf.StringVar(&f.logFormat, "log-format", "text", "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&f.logLevel, "log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	runCmd := &cobra.Command{
		Use:   "run PROJECT_PATH...",
		Short: "Submit and generate every configured phase",
		Args:  projectArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args)
			if err != nil {
				return err
			}
			a, err := newApp(opts, cfg)
			if err != nil {
				return err
			}
			return exitError(a.Run(cmd.Context()))
		},
	}
	rf := runCmd.Flags()
	rf.StringVar(&f.remote, "remote", "", "Compiler service base URL. Overrides the project file.")
	rf.StringVar(&f.project, "project", "", "Server-side project id. Overrides the project file.")
	rf.StringVar(&f.token, "token", "", "Bearer token sent to the compiler service.")
	rf.DurationVar(&f.timeout, "timeout", 30*time.Second, "Timeout of every compiler service request.")
	rf.Float64Var(&f.rateLimit, "rate-limit", 0, "Maximum compiler service requests per second. 0 is unlimited.")
	rf.IntVar(&f.burst, "burst", 1, "Request burst allowed by the rate limiter.")
	rf.IntVar(&f.healthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check and metrics server. 0 is disabled.")
	rf.StringVar(&f.snapshotDir, "snapshot-dir", "", "Directory of the snapshot database. Empty disables snapshots.")
	rf.BoolVar(&f.restore, "restore", false, "Resume from the project's saved snapshot.")
	rf.StringVar(&f.notifyURL, "notify-url", "", "socket.io server receiving phase status events.")
	rf.StringVar(&f.notifyNamespace, "notify-namespace", "/", "socket.io namespace for phase status events.")

	validateCmd := &cobra.Command{
		Use:   "validate PROJECT_PATH...",
		Short: "Check every phase configuration locally without contacting the service",
		Args:  projectArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.config(args)
			if err != nil {
				return err
			}
			a, err := newApp(opts, cfg)
			if err != nil {
				return err
			}
			return exitError(a.Validate(cmd.Context()))
		},
	}

	rootCmd.AddCommand(runCmd, validateCmd)
	return rootCmd
}

// Execute runs the command tree with args and returns an *ExitError for
// every failure.
func Execute(ctx context.Context, args []string, opts Options) error {
	rootCmd := NewRootCommand(opts)
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		// Unknown commands and argument errors come straight from cobra.
		return usageError(err)
	}
	return nil
}

func projectArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return usageError(fmt.Errorf("%s needs at least one project file or directory", cmd.Name()))
	}
	return nil
}

func (f *flags) config(paths []string) (*app.Config, error) {
	cfg, err := app.NewConfig(app.Config{
		ProjectPaths:    paths,
		Format:          strings.ToLower(f.format),
		RemoteURL:       f.remote,
		ProjectID:       f.project,
		Token:           f.token,
		Timeout:         f.timeout,
		RateLimit:       f.rateLimit,
		Burst:           f.burst,
		LinkPolicy:      strings.ToLower(f.linkPolicy),
		LogFormat:       strings.ToLower(f.logFormat),
		LogLevel:        strings.ToLower(f.logLevel),
		HealthcheckPort: f.healthcheckPort,
		SnapshotDir:     f.snapshotDir,
		Restore:         f.restore,
		NotifyURL:       f.notifyURL,
		NotifyNamespace: f.notifyNamespace,
	})
	if err != nil {
		return nil, usageError(err)
	}
	slog.Debug("CLI configuration validated.", "paths", paths)
	return cfg, nil
}

func newApp(opts Options, cfg *app.Config) (*app.App, error) {
	appOpts := append([]app.Option{app.WithLogWriter(opts.Err)}, opts.AppOptions...)
	a, err := app.NewApp(opts.Out, cfg, nil, appOpts...)
	if err != nil {
		return nil, &ExitError{Code: ExitFailure, Message: err.Error(), Err: err}
	}
	return a, nil
}

// applyEnv fills every flag the user did not set from its PHASEGRID_*
// environment variable.
func applyEnv(fs *pflag.FlagSet, lookup func(string) (string, bool)) error {
	var firstErr error
	fs.VisitAll(func(fl *pflag.Flag) {
		if fl.Changed || firstErr != nil {
			return
		}
		name := EnvName(fl.Name)
		v, ok := lookup(name)
		if !ok {
			return
		}
		if err := fl.Value.Set(v); err != nil {
			firstErr = usageError(fmt.Errorf("invalid %s: %w", name, err))
		}
	})
	return firstErr
}

// EnvName returns the environment variable behind a flag.
func EnvName(flag string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(flag, "-", "_"))
}
