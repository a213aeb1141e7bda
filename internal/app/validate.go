package app

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Validate runs the local rule validators over every configured phase of
// the project and prints one result row per phase. Nothing is sent to the
// compiler service. The returned error joins every violation found.
func (a *App) Validate(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	logger := ctxlog.FromContext(ctx)

	policy, err := a.linkPolicy()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PHASE\tRESULT")
	var errs []error
	for _, p := range phase.All() {
		cfg, ok := a.project.Configuration(p)
		if !ok {
			fmt.Fprintf(tw, "%s\tnot configured\n", p)
			continue
		}
		if err := rules.Validate(cfg, rules.WithLinkPolicy(policy)); err != nil {
			if kind, ok := rules.KindOf(err); ok {
				a.metrics.Violation(string(kind))
			}
			logger.Info("Configuration rejected.", "phase", p.String(), "error", err)
			fmt.Fprintf(tw, "%s\t%v\n", p, err)
			errs = append(errs, fmt.Errorf("%s: %w", p, err))
			continue
		}
		fmt.Fprintf(tw, "%s\tok\n", p)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return errors.Join(errs...)
}

// linkPolicy resolves the grammar-link policy: the command line wins over
// the project file, and permissive is the default.
func (a *App) linkPolicy() (rules.LinkPolicy, error) {
	name := firstNonEmpty(a.config.LinkPolicy, a.project.LinkPolicy)
	if name == "" {
		return rules.PermissiveLinks, nil
	}
	return rules.ParseLinkPolicy(name)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
