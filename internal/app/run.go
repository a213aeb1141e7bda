package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/notify"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/pipeline"
	"github.com/specialistvlad/phasegrid/internal/remote"
	"github.com/specialistvlad/phasegrid/internal/snapshot"
	"golang.org/x/sync/errgroup"
)

// Run drives the loaded project through one pipeline session: it confirms
// the source, submits and generates every configured phase of the main
// chain while the Optimiser branch runs concurrently, prints the resulting
// artifacts and saves a snapshot when snapshots are enabled.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.project.Source == nil {
		return errors.New("project defines no source")
	}
	policy, err := a.linkPolicy()
	if err != nil {
		return err
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if cerr := closers[i].Close(); cerr != nil {
				a.logger.Warn("Failed to release resource.", "error", cerr)
			}
		}
	}()

	svc, err := a.remoteService(&closers)
	if err != nil {
		return err
	}
	publisher, err := a.eventPublisher(ctx, &closers)
	if err != nil {
		return err
	}
	store, err := a.snapshotStore(&closers)
	if err != nil {
		return err
	}

	a.startHealthcheckServer(a.config.HealthcheckPort)
	defer func() {
		if cerr := a.closeHealthcheckServer(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()

	projectID := firstNonEmpty(a.config.ProjectID, a.project.ID)
	session, err := pipeline.NewSession(ctx, projectID, svc,
		pipeline.WithMetrics(a.metrics),
		pipeline.WithPublisher(publisher),
		pipeline.WithLinkPolicy(policy),
	)
	if err != nil {
		return err
	}
	logger := a.logger.With("session", session.ID(), "project", projectID)
	if projectID == "" {
		logger.Warn("No project id given; the compiler service will reject every submission.")
	}

	if store != nil && a.config.Restore {
		if err := a.restore(ctx, session, store, projectID); err != nil {
			return err
		}
	}

	for _, cfg := range a.project.Configurations() {
		if cfg.Phase() == phase.Source {
			continue
		}
		if err := session.Configure(ctx, cfg); err != nil {
			return fmt.Errorf("failed to configure %s: %w", cfg.Phase(), err)
		}
	}

	logger.Info("🚀 Confirming source...")
	runErr := session.ConfirmSource(ctx, a.project.Source.Code)
	if runErr == nil {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return a.runPhases(gctx, session, phase.Chain()[1:])
		})
		g.Go(func() error {
			return a.runPhases(gctx, session, []phase.Phase{phase.Optimiser})
		})
		runErr = g.Wait()
	} else {
		runErr = fmt.Errorf("confirm source: %w", runErr)
	}

	if err := a.render(ctx, session); err != nil {
		return err
	}

	// Partial progress is saved too, so a later --restore picks up from it.
	if store != nil && projectID != "" {
		if err := a.save(ctx, session, store); err != nil {
			return errors.Join(runErr, err)
		}
	}

	if runErr != nil {
		return runErr
	}
	logger.Info("🏁 Pipeline finished.")
	a.logger.Debug("App.Run method finished.")
	return nil
}

// runPhases submits and generates phases in order. A phase the project does
// not configure ends the branch, because everything after it stays locked.
func (a *App) runPhases(ctx context.Context, s *pipeline.Session, phases []phase.Phase) error {
	logger := ctxlog.FromContext(ctx)
	for _, p := range phases {
		if _, ok := a.project.Configuration(p); !ok {
			logger.Info("Phase not configured; stopping here.", "phase", p.String())
			return nil
		}
		if err := a.runPhase(ctx, s, p); err != nil {
			return err
		}
	}
	return nil
}

func (a *App) runPhase(ctx context.Context, s *pipeline.Session, p phase.Phase) error {
	ctx = ctxlog.With(ctx, "phase", p.String())
	logger := ctxlog.FromContext(ctx)
	if s.Status(p) == phasestate.Generated {
		logger.Info("Phase already generated.")
		return nil
	}
	for _, terminal := range s.Advisories(ctx, p) {
		logger.Warn("Grammar terminal has no matching token type.", "terminal", terminal)
	}
	if s.Status(p) != phasestate.Submitted {
		if err := s.Submit(ctx, p); err != nil {
			return fmt.Errorf("submit %s: %w", p, err)
		}
	}
	if _, err := s.Generate(ctx, p); err != nil {
		return fmt.Errorf("generate %s: %w", p, err)
	}
	return nil
}

func (a *App) render(ctx context.Context, s *pipeline.Session) error {
	for _, p := range phase.All() {
		art, ok := s.Artifact(ctx, p)
		if !ok {
			continue
		}
		if err := renderArtifact(a.outW, p, art); err != nil {
			return fmt.Errorf("failed to print %s artifact: %w", p, err)
		}
	}
	return renderStatuses(a.outW, s.States())
}

func (a *App) restore(ctx context.Context, s *pipeline.Session, store snapshot.Store, projectID string) error {
	if projectID == "" {
		a.logger.Warn("Snapshot restore skipped: no project id.")
		return nil
	}
	snap, err := store.Load(ctx, projectID)
	if errors.Is(err, snapshot.ErrNotFound) {
		a.logger.Info("No snapshot to restore.", "project", projectID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load snapshot: %w", err)
	}
	if err := s.Restore(ctx, snap); err != nil {
		return err
	}
	a.logger.Info("Session restored from snapshot.", "project", projectID, "saved_at", snap.SavedAt)
	return nil
}

func (a *App) save(ctx context.Context, s *pipeline.Session, store snapshot.Store) error {
	snap, err := s.Snapshot()
	if err != nil {
		return fmt.Errorf("failed to build snapshot: %w", err)
	}
	if err := store.Save(context.WithoutCancel(ctx), snap); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	a.logger.Info("Snapshot saved.", "project", snap.ProjectID, "phases", len(snap.Phases))
	return nil
}

// remoteService returns the injected service or an HTTP client built from
// the configuration.
func (a *App) remoteService(closers *[]io.Closer) (remote.Service, error) {
	if a.service != nil {
		return a.service, nil
	}
	url := firstNonEmpty(a.config.RemoteURL, a.project.Remote)
	if url == "" {
		return nil, errors.New("no compiler service URL: pass --remote or set remote in the project file")
	}
	client, err := remote.NewClient(remote.ClientConfig{
		BaseURL:   url,
		Timeout:   a.config.Timeout,
		RateLimit: a.config.RateLimit,
		Burst:     a.config.Burst,
		Token:     a.config.Token,
	})
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, client)
	return client, nil
}

func (a *App) eventPublisher(ctx context.Context, closers *[]io.Closer) (notify.Publisher, error) {
	if a.publisher != nil {
		return a.publisher, nil
	}
	if a.config.NotifyURL == "" {
		return notify.NopPublisher{}, nil
	}
	pub, err := notify.DialSocketIO(ctx, notify.SocketIOConfig{
		URL:       a.config.NotifyURL,
		Namespace: a.config.NotifyNamespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect event publisher: %w", err)
	}
	*closers = append(*closers, pub)
	return pub, nil
}

func (a *App) snapshotStore(closers *[]io.Closer) (snapshot.Store, error) {
	if a.snapshots != nil {
		return a.snapshots, nil
	}
	if a.config.SnapshotDir == "" {
		return nil, nil
	}
	store, err := snapshot.OpenBadger(snapshot.BadgerConfig{
		Dir:        a.config.SnapshotDir,
		SyncWrites: true,
		Logger:     a.logger.With("component", "badger"),
	})
	if err != nil {
		return nil, err
	}
	*closers = append(*closers, store)
	return store, nil
}
