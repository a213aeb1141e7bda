// Package phasestate holds the mutable record of a single pipeline phase:
// its in-progress configuration, the configuration last accepted by the
// remote service, its artifact, its status and its last error.
//
// Each outstanding remote request is identified by a Ticket carrying the
// store's generation at the time the request started. Resetting, editing or
// starting a newer request bumps the generation, so a late completion for an
// older request is detected and discarded with ErrStale instead of
// overwriting newer state.
package phasestate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Detail describes why a phase is in the Error status.
type Detail struct {
	Action  Action `json:"action"`
	Message string `json:"message"`
	// Cause is the original error. It is not persisted.
	Cause error `json:"-"`
}

// Ticket identifies one in-flight request. A submit ticket carries the
// configuration captured when the request started; that is the value sent
// to the remote service and the value recorded when it is accepted.
type Ticket struct {
	Phase      phase.Phase
	Action     Action
	Generation uint64
	Config     rules.Configuration
}

// Check inspects the configuration about to be submitted.
type Check func(rules.Configuration) error

// Transition is reported to the observer after every status change.
type Transition struct {
	Phase  phase.Phase
	From   Status
	To     Status
	Detail *Detail
}

// State is a point-in-time copy of a Store.
type State struct {
	Phase         phase.Phase
	Configuration rules.Configuration
	Submitted     rules.Configuration
	Artifact      artifact.Artifact
	Status        Status
	Detail        *Detail
	Generation    uint64
}

// Check verifies the documented invariants: an artifact exists only when
// Generated, and a submitted configuration exists only once a submission
// has been accepted.
func (s State) Check() error {
	if s.Artifact != nil && s.Status != Generated {
		return fmt.Errorf("%s: artifact present in status %s", s.Phase, s.Status)
	}
	if s.Submitted != nil {
		switch s.Status {
		case Submitted, Generating, Generated, Error:
		default:
			return fmt.Errorf("%s: submitted configuration present in status %s", s.Phase, s.Status)
		}
	}
	return nil
}

// Store is the state of one phase. It is safe for concurrent use.
type Store struct {
	mu sync.RWMutex

	phase         phase.Phase
	configuration rules.Configuration
	submitted     rules.Configuration
	// pending holds the accepted configuration while a resubmission is in
	// flight so a failed submit can leave it unchanged.
	pending    rules.Configuration
	artifact   artifact.Artifact
	status     Status
	detail     *Detail
	generation uint64

	observer func(Transition)
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers fn to be called after every status change. fn is
// called without the store's lock held.
func WithObserver(fn func(Transition)) Option {
	return func(s *Store) { s.observer = fn }
}

// New creates an Idle store for phase p.
func New(p phase.Phase, opts ...Option) *Store {
	s := &Store{phase: p}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Phase returns the phase this store belongs to.
func (s *Store) Phase() phase.Phase {
	return s.phase
}

// Status returns the current status.
func (s *Store) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Artifact returns the generated artifact, or nil.
func (s *Store) Artifact() artifact.Artifact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact
}

// Configuration returns a copy of the in-progress configuration, or nil.
func (s *Store) Configuration() rules.Configuration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneConfig(s.configuration)
}

// State returns a copy of the whole record.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var detail *Detail
	if s.detail != nil {
		d := *s.detail
		detail = &d
	}
	return State{
		Phase:         s.phase,
		Configuration: cloneConfig(s.configuration),
		Submitted:     cloneConfig(s.submitted),
		Artifact:      s.artifact,
		Status:        s.status,
		Detail:        detail,
		Generation:    s.generation,
	}
}

// SetConfiguration replaces the in-progress configuration and reports
// whether anything changed. Setting a value equal to the current one is a
// no-op unless the phase is Idle or in Error. Any change moves the phase to Configuring,
// which drops the artifact and the submitted configuration, and turns an
// outstanding request into a stale one.
func (s *Store) SetConfiguration(cfg rules.Configuration) (bool, error) {
	if cfg == nil {
		return false, errors.New("configuration must not be nil")
	}
	if cfg.Phase() != s.phase {
		return false, fmt.Errorf("%w: %s configuration given to %s", rules.ErrPhaseMismatch, cfg.Phase(), s.phase)
	}

	s.mu.Lock()
	if s.status != Idle && s.status != Error && sameConfiguration(cfg, s.configuration) {
		s.mu.Unlock()
		return false, nil
	}
	if s.status.InFlight() {
		s.generation++
	}
	s.configuration = cfg.Clone()
	s.submitted = nil
	s.pending = nil
	s.artifact = nil
	s.detail = nil
	tr := s.moveLocked(Configuring)
	s.mu.Unlock()

	s.notify(tr)
	return true, nil
}

// BeginSubmit captures the in-progress configuration into a ticket and moves
// the phase to Submitting. Every check runs against the captured value
// under the store's lock; the first failure is returned unchanged and the
// phase is left as it was.
func (s *Store) BeginSubmit(checks ...Check) (Ticket, error) {
	s.mu.Lock()
	if s.status.InFlight() {
		s.mu.Unlock()
		return Ticket{}, ErrInFlight
	}
	if s.configuration == nil {
		s.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: %s has no configuration to submit", ErrInvalidTransition, s.phase)
	}
	cfg := s.configuration.Clone()
	for _, check := range checks {
		if err := check(cfg); err != nil {
			s.mu.Unlock()
			return Ticket{}, err
		}
	}
	s.generation++
	s.pending = s.submitted
	s.submitted = nil
	s.artifact = nil
	s.detail = nil
	t := Ticket{Phase: s.phase, Action: ActionSubmit, Generation: s.generation, Config: cfg}
	tr := s.moveLocked(Submitting)
	s.mu.Unlock()

	s.notify(tr)
	return t, nil
}

// CompleteSubmit applies the outcome of the request identified by t. A nil
// cause means success and records t.Config as the submitted configuration.
// Returns ErrStale when t has been superseded.
func (s *Store) CompleteSubmit(t Ticket, cause error) error {
	s.mu.Lock()
	if !s.currentLocked(t, Submitting) {
		s.mu.Unlock()
		return ErrStale
	}
	var tr *Transition
	if cause == nil {
		s.submitted = cloneConfig(t.Config)
		s.pending = nil
		tr = s.moveLocked(Submitted)
	} else {
		s.submitted = s.pending
		s.pending = nil
		s.detail = &Detail{Action: ActionSubmit, Message: cause.Error(), Cause: cause}
		tr = s.moveLocked(Error)
	}
	s.mu.Unlock()

	s.notify(tr)
	return nil
}

// CanGenerate reports whether BeginGenerate would succeed: the phase holds
// an accepted submission and is Submitted, Generated (regeneration) or in
// Error because a previous generate failed.
func (s *Store) CanGenerate() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.canGenerateLocked()
}

func (s *Store) canGenerateLocked() bool {
	switch s.status {
	case Submitted, Generated:
		return s.submitted != nil
	case Error:
		return s.submitted != nil && s.detail != nil && s.detail.Action == ActionGenerate
	}
	return false
}

// BeginGenerate moves the phase to Generating.
func (s *Store) BeginGenerate() (Ticket, error) {
	s.mu.Lock()
	if s.status.InFlight() {
		s.mu.Unlock()
		return Ticket{}, ErrInFlight
	}
	if !s.canGenerateLocked() {
		st := s.status
		s.mu.Unlock()
		return Ticket{}, fmt.Errorf("%w: cannot generate %s from %s", ErrInvalidTransition, s.phase, st)
	}
	s.generation++
	s.artifact = nil
	s.detail = nil
	t := Ticket{Phase: s.phase, Action: ActionGenerate, Generation: s.generation}
	tr := s.moveLocked(Generating)
	s.mu.Unlock()

	s.notify(tr)
	return t, nil
}

// CompleteGenerate applies the outcome of a generate request. On failure
// the artifact stays cleared and the submitted configuration is kept so
// the phase can be regenerated without resubmitting.
func (s *Store) CompleteGenerate(t Ticket, a artifact.Artifact, cause error) error {
	if cause == nil && a == nil {
		cause = errors.New("remote service returned no artifact")
	}

	s.mu.Lock()
	if !s.currentLocked(t, Generating) {
		s.mu.Unlock()
		return ErrStale
	}
	var tr *Transition
	if cause == nil {
		s.artifact = a
		tr = s.moveLocked(Generated)
	} else {
		s.artifact = nil
		s.detail = &Detail{Action: ActionGenerate, Message: cause.Error(), Cause: cause}
		tr = s.moveLocked(Error)
	}
	s.mu.Unlock()

	s.notify(tr)
	return nil
}

// Holds reports whether the outcome of the request identified by t is
// still the current state: nothing has superseded t, and the phase is still
// in the status a successful completion of t produced.
func (s *Store) Holds(t Ticket) bool {
	want := Submitted
	if t.Action == ActionGenerate {
		want = Generated
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked(t, want)
}

// Reset returns the phase to Idle, clearing the submitted configuration
// and the artifact. The in-progress configuration is kept so the user's
// edits survive invalidation. Outstanding requests become stale.
func (s *Store) Reset() {
	s.reset(false)
}

// Clear is Reset that also forgets the in-progress configuration.
func (s *Store) Clear() {
	s.reset(true)
}

func (s *Store) reset(forget bool) {
	s.mu.Lock()
	s.generation++
	if forget {
		s.configuration = nil
	}
	s.submitted = nil
	s.pending = nil
	s.artifact = nil
	s.detail = nil
	tr := s.moveLocked(Idle)
	s.mu.Unlock()

	s.notify(tr)
}

// Restore replaces the record with st, typically loaded from a snapshot.
// A request cannot outlive the process that issued it, so an in-flight
// status is rolled back to the status the request started from.
func (s *Store) Restore(st State) error {
	if st.Phase != s.phase {
		return fmt.Errorf("%w: state for %s restored into %s", rules.ErrPhaseMismatch, st.Phase, s.phase)
	}
	st, err := Rehydrate(st)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.generation++
	s.configuration = cloneConfig(st.Configuration)
	s.submitted = cloneConfig(st.Submitted)
	s.pending = nil
	s.artifact = st.Artifact
	s.detail = st.Detail
	tr := s.moveLocked(st.Status)
	s.mu.Unlock()

	s.notify(tr)
	return nil
}

// Rehydrate normalises a persisted state and checks the result without
// touching any store. Restore applies exactly what Rehydrate returns, so a
// caller restoring several phases can check them all first.
func Rehydrate(st State) (State, error) {
	switch st.Status {
	case Submitting:
		st.Status = Configuring
		st.Submitted = nil
	case Generating:
		st.Status = Submitted
	}
	if st.Status == Configuring && st.Submitted != nil {
		st.Submitted = nil
	}
	if st.Status != Generated {
		st.Artifact = nil
	}
	if st.Status == Error && st.Detail == nil {
		st.Detail = &Detail{Action: ActionSubmit, Message: "restored without error detail"}
	}
	if st.Configuration != nil && st.Configuration.Phase() != st.Phase {
		return st, fmt.Errorf("%w: %s configuration restored into %s", rules.ErrPhaseMismatch, st.Configuration.Phase(), st.Phase)
	}
	if err := st.Check(); err != nil {
		return st, err
	}
	return st, nil
}

func (s *Store) currentLocked(t Ticket, want Status) bool {
	return t.Phase == s.phase && t.Generation == s.generation && s.status == want
}

// moveLocked sets the status and returns the transition to report, or nil
// when the status did not change.
func (s *Store) moveLocked(to Status) *Transition {
	from := s.status
	s.status = to
	if from == to {
		return nil
	}
	var detail *Detail
	if s.detail != nil {
		d := *s.detail
		detail = &d
	}
	return &Transition{Phase: s.phase, From: from, To: to, Detail: detail}
}

func (s *Store) notify(tr *Transition) {
	if tr == nil || s.observer == nil {
		return
	}
	s.observer(*tr)
}

func cloneConfig(cfg rules.Configuration) rules.Configuration {
	if cfg == nil {
		return nil
	}
	return cfg.Clone()
}

// sameConfiguration compares configurations treating nil and empty lists as
// equal, so a configuration that went through a snapshot still matches the
// one loaded from a project file.
func sameConfiguration(a, b rules.Configuration) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}
