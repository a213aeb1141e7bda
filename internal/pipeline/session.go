package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/artifactcache"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/inmemorycache"
	"github.com/specialistvlad/phasegrid/internal/metrics"
	"github.com/specialistvlad/phasegrid/internal/notify"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/remote"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Session is one pipeline: a store per phase plus the collaborators the
// phases share. Sessions are independent of each other. A Session is safe
// for concurrent use.
type Session struct {
	id         string
	remote     remote.Service
	cache      artifactcache.Cache
	publisher  notify.Publisher
	metrics    *metrics.Metrics
	linkPolicy rules.LinkPolicy
	logger     *slog.Logger
	now        func() time.Time

	topo   *topology
	stores map[phase.Phase]*phasestate.Store

	mu        sync.RWMutex
	projectID string

	// cacheMu orders cache writes against the deletes made by the observer,
	// so an artifact is cached only while its phase is still Generated.
	cacheMu sync.Mutex
}

// Option configures a Session.
type Option func(*Session)

// WithCache replaces the default in-memory artifact cache.
func WithCache(c artifactcache.Cache) Option {
	return func(s *Session) { s.cache = c }
}

// WithPublisher sets where phase events are published.
func WithPublisher(p notify.Publisher) Option {
	return func(s *Session) { s.publisher = p }
}

// WithMetrics enables metrics collection.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithLinkPolicy sets how empty Analyser grammar links are treated.
func WithLinkPolicy(p rules.LinkPolicy) Option {
	return func(s *Session) { s.linkPolicy = p }
}

// WithSessionID overrides the generated session id.
func WithSessionID(id string) Option {
	return func(s *Session) { s.id = id }
}

// WithClock overrides the time source used for events and snapshots.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// NewSession creates a session with every phase Idle. The logger carried by
// ctx is used for transitions that happen outside any call.
func NewSession(ctx context.Context, projectID string, svc remote.Service, opts ...Option) (*Session, error) {
	if svc == nil {
		return nil, errors.New("pipeline session needs a remote service")
	}
	topo, err := newTopology()
	if err != nil {
		return nil, fmt.Errorf("failed to build phase topology: %w", err)
	}

	s := &Session{
		id:         uuid.NewString(),
		remote:     svc,
		cache:      inmemorycache.New(),
		publisher:  notify.NopPublisher{},
		linkPolicy: rules.PermissiveLinks,
		now:        time.Now,
		topo:       topo,
		stores:     make(map[phase.Phase]*phasestate.Store),
		projectID:  projectID,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = ctxlog.FromContext(ctx).With("session", s.id)

	for _, p := range phase.All() {
		s.stores[p] = phasestate.New(p, phasestate.WithObserver(s.observe))
	}
	s.logger.Debug("Pipeline session created.", "project", projectID, "phases", len(s.stores))
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// ProjectID returns the project the session round-trips configurations to.
func (s *Session) ProjectID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectID
}

// SetProjectID replaces the project identity, typically after the user
// signed in again.
func (s *Session) SetProjectID(id string) {
	s.mu.Lock()
	s.projectID = id
	s.mu.Unlock()
}

func (s *Session) store(p phase.Phase) (*phasestate.Store, error) {
	st, ok := s.stores[p]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownPhase, int(p))
	}
	return st, nil
}

// Status returns the status of p, or Idle for an unknown phase.
func (s *Session) Status(p phase.Phase) phasestate.Status {
	if st, ok := s.stores[p]; ok {
		return st.Status()
	}
	return phasestate.Idle
}

// State returns a copy of the state of p.
func (s *Session) State(p phase.Phase) (phasestate.State, error) {
	st, err := s.store(p)
	if err != nil {
		return phasestate.State{}, err
	}
	return st.State(), nil
}

// States returns a copy of every phase state in pipeline order.
func (s *Session) States() []phasestate.State {
	out := make([]phasestate.State, 0, len(s.topo.order))
	for _, p := range s.topo.order {
		out = append(out, s.stores[p].State())
	}
	return out
}

// Artifact returns the cached artifact of p.
func (s *Session) Artifact(ctx context.Context, p phase.Phase) (artifact.Artifact, bool) {
	return s.cache.Get(ctx, p)
}

// Configure replaces the in-progress configuration of the phase cfg belongs
// to. A real change invalidates every downstream phase.
func (s *Session) Configure(ctx context.Context, cfg rules.Configuration) error {
	_, err := s.configure(ctx, cfg)
	return err
}

func (s *Session) configure(ctx context.Context, cfg rules.Configuration) (bool, error) {
	if cfg == nil {
		return false, errors.New("configuration must not be nil")
	}
	p := cfg.Phase()
	st, err := s.store(p)
	if err != nil {
		return false, err
	}
	changed, err := st.SetConfiguration(cfg)
	if err != nil {
		return false, err
	}
	if changed {
		ctxlog.FromContext(ctx).Debug("Phase configuration changed.", "session", s.id, "phase", p.String())
		s.OnUpstreamChanged(ctx, p)
	}
	return changed, nil
}

// Validate runs the local validators against the in-progress configuration
// of p without touching the phase state.
func (s *Session) Validate(p phase.Phase) error {
	st, err := s.store(p)
	if err != nil {
		return err
	}
	cfg := st.Configuration()
	if cfg == nil {
		return fmt.Errorf("%w: %s", ErrNoConfiguration, p)
	}
	return rules.Validate(cfg, rules.WithLinkPolicy(s.linkPolicy))
}

// Submit validates the configuration of p and sends it to the remote
// service. A validation failure is returned as a *rules.Violation and
// leaves the phase untouched. A remote failure moves the phase to Error
// and is returned as a *remote.TransportError or *remote.IdentityError.
func (s *Session) Submit(ctx context.Context, p phase.Phase) error {
	st, err := s.store(p)
	if err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx).With("session", s.id, "phase", p.String(), "action", string(phasestate.ActionSubmit))

	if err := s.CanRun(p, phasestate.ActionSubmit); err != nil {
		return err
	}
	if st.Configuration() == nil {
		return fmt.Errorf("%w: %s", ErrNoConfiguration, p)
	}
	projectID, err := s.requireProject(p, phasestate.ActionSubmit)
	if err != nil {
		logger.Warn("Refusing to submit without a project identity.")
		return err
	}

	// The configuration is validated, sent and recorded as one captured value.
	t, err := st.BeginSubmit(func(cfg rules.Configuration) error {
		return rules.Validate(cfg, rules.WithLinkPolicy(s.linkPolicy))
	})
	if err != nil {
		if kind, ok := rules.KindOf(err); ok {
			s.metrics.Violation(string(kind))
			logger.Info("Configuration rejected by validation.", "error", err)
		}
		return err
	}
	s.OnUpstreamChanged(ctx, p)

	start := time.Now()
	callErr := tag(p, phasestate.ActionSubmit, s.remote.SubmitConfiguration(ctx, p, projectID, t.Config))
	s.metrics.RemoteCall(p.String(), string(phasestate.ActionSubmit), outcome(callErr), time.Since(start).Seconds())

	if err := st.CompleteSubmit(t, callErr); err != nil {
		return s.stale(logger, p, err)
	}
	if callErr != nil {
		logger.Warn("Submit failed.", "error", callErr)
		return callErr
	}
	logger.Info("Configuration submitted.")
	return nil
}

// Generate asks the remote service for the artifact of p using the last
// accepted submission and caches it. Source is generated locally from the
// confirmed code.
func (s *Session) Generate(ctx context.Context, p phase.Phase) (artifact.Artifact, error) {
	st, err := s.store(p)
	if err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx).With("session", s.id, "phase", p.String(), "action", string(phasestate.ActionGenerate))

	if err := s.CanRun(p, phasestate.ActionGenerate); err != nil {
		return nil, err
	}
	var projectID string
	if p != phase.Source {
		if projectID, err = s.requireProject(p, phasestate.ActionGenerate); err != nil {
			logger.Warn("Refusing to generate without a project identity.")
			return nil, err
		}
	}

	t, err := st.BeginGenerate()
	if err != nil {
		return nil, err
	}
	s.OnUpstreamChanged(ctx, p)

	var a artifact.Artifact
	var callErr error
	if p == phase.Source {
		a, callErr = sourceArtifact(st.State().Submitted)
	} else {
		start := time.Now()
		a, callErr = s.remote.GenerateArtifact(ctx, p, projectID)
		if callErr == nil && a == nil {
			callErr = errors.New("compiler service returned no artifact")
		}
		callErr = tag(p, phasestate.ActionGenerate, callErr)
		s.metrics.RemoteCall(p.String(), string(phasestate.ActionGenerate), outcome(callErr), time.Since(start).Seconds())
	}
	if callErr != nil {
		a = nil
	}

	if err := st.CompleteGenerate(t, a, callErr); err != nil {
		return nil, s.stale(logger, p, err)
	}
	if callErr != nil {
		logger.Warn("Generate failed.", "error", callErr)
		return nil, callErr
	}
	if err := s.cacheArtifact(ctx, st, t, a); err != nil {
		return nil, s.stale(logger, p, err)
	}
	logger.Info("Artifact generated.", "kind", string(a.Kind()))
	return a, nil
}

// cacheArtifact caches a for the phase of t unless an edit, reset or newer
// request has moved the phase on since t completed, in which case the
// artifact is already outdated and ErrStale is returned.
func (s *Session) cacheArtifact(ctx context.Context, st *phasestate.Store, t phasestate.Ticket, a artifact.Artifact) error {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	if !st.Holds(t) {
		return phasestate.ErrStale
	}
	if err := s.cache.Set(ctx, t.Phase, a); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to cache artifact.", "session", s.id, "phase", t.Phase.String(), "error", err)
	}
	return nil
}

// ConfirmSource sets the source code, submits it and marks Source
// Generated, which unlocks the Lexer and the Optimiser. Confirming the code
// that is already confirmed is a no-op.
func (s *Session) ConfirmSource(ctx context.Context, code string) error {
	src := s.stores[phase.Source]
	changed, err := s.configure(ctx, rules.SourceInput{Code: code})
	if err != nil {
		return err
	}
	if !changed && src.Status() == phasestate.Generated {
		return nil
	}
	if !src.CanGenerate() {
		if err := s.Submit(ctx, phase.Source); err != nil {
			return err
		}
	}
	_, err = s.Generate(ctx, phase.Source)
	return err
}

// Advisories returns soft warnings for p that do not block submission.
// For the Parser these are grammar terminals with no matching token type
// in the Lexer's generated tokens.
func (s *Session) Advisories(ctx context.Context, p phase.Phase) []string {
	if p != phase.Parser {
		return nil
	}
	g, ok := s.stores[phase.Parser].Configuration().(rules.Grammar)
	if !ok {
		return nil
	}
	a, ok := s.cache.Get(ctx, phase.Lexer)
	if !ok {
		return nil
	}
	tokens, ok := a.(artifact.TokenSet)
	if !ok {
		return nil
	}
	return rules.MissingTokenTypes(g, tokens)
}

// Reset returns every phase to Idle, keeping the configurations the user
// entered. Outstanding requests become stale.
func (s *Session) Reset(ctx context.Context) error {
	for _, p := range s.topo.order {
		s.stores[p].Reset()
	}
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cache.Clear(ctx)
}

// Clear is Reset that also forgets every configuration.
func (s *Session) Clear(ctx context.Context) error {
	for _, p := range s.topo.order {
		s.stores[p].Clear()
	}
	ctxlog.FromContext(ctx).Debug("Pipeline cleared.", "session", s.id)
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	return s.cache.Clear(ctx)
}

func (s *Session) requireProject(p phase.Phase, action phasestate.Action) (string, error) {
	id := s.ProjectID()
	if strings.TrimSpace(id) == "" {
		return "", &remote.IdentityError{Phase: p, Action: action, Err: remote.ErrMissingProject}
	}
	return id, nil
}

func (s *Session) stale(logger *slog.Logger, p phase.Phase, err error) error {
	if errors.Is(err, phasestate.ErrStale) {
		s.metrics.StaleCompletion(p.String())
		logger.Debug("Discarded stale completion.")
		return fmt.Errorf("%s: %w", p, err)
	}
	return err
}

// observe is the observer of every store.
func (s *Session) observe(tr phasestate.Transition) {
	logger := s.logger.With("phase", tr.Phase.String())
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Phase transition.", "from", tr.From.String(), "to", tr.To.String())
	s.metrics.Transition(tr.Phase.String(), tr.To.String())

	if tr.To != phasestate.Generated {
		s.cacheMu.Lock()
		err := s.cache.Delete(ctx, tr.Phase)
		s.cacheMu.Unlock()
		if err != nil {
			logger.Warn("Failed to drop cached artifact.", "error", err)
		}
	}

	ev := notify.PhaseEvent{
		Session: s.id,
		Project: s.ProjectID(),
		Phase:   tr.Phase,
		From:    tr.From,
		Status:  tr.To,
		At:      s.now(),
	}
	if tr.Detail != nil {
		ev.Action = tr.Detail.Action
		ev.Detail = tr.Detail.Message
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		logger.Warn("Failed to publish phase event.", "error", err)
	}
}

func sourceArtifact(submitted rules.Configuration) (artifact.Artifact, error) {
	in, ok := submitted.(rules.SourceInput)
	if !ok {
		return nil, errors.New("source has no confirmed code")
	}
	return artifact.SourceText{Code: in.Code}, nil
}

// tag makes sure every remote failure carries the error taxonomy, even when
// a Service implementation returns a bare error.
func tag(p phase.Phase, action phasestate.Action, err error) error {
	if err == nil || remote.IsIdentity(err) || remote.IsTransport(err) {
		return err
	}
	return &remote.TransportError{Phase: p, Action: action, Err: err}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case remote.IsIdentity(err):
		return metrics.OutcomeIdentity
	default:
		return metrics.OutcomeTransport
	}
}
