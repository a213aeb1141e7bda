package testutil

import (
	"context"
	"sync"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/remote"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Call records one request received by a FakeService.
type Call struct {
	Phase     phase.Phase
	Action    phasestate.Action
	ProjectID string
	Config    rules.Configuration
}

// Gate holds the next call on a phase until Release is called.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered is closed once the held call has reached the service.
func (g *Gate) Entered() <-chan struct{} { return g.entered }

// Release lets the held call complete.
func (g *Gate) Release() { g.once.Do(func() { close(g.release) }) }

// FakeService is a scripted remote.Service. By default every call succeeds
// and generate returns DefaultArtifact for the phase.
type FakeService struct {
	mu          sync.Mutex
	calls       []Call
	submitErrs  map[phase.Phase][]error
	generateErr map[phase.Phase][]error
	artifacts   map[phase.Phase]artifact.Artifact
	gates       map[phase.Phase]*Gate
}

var _ remote.Service = (*FakeService)(nil)

// NewFakeService creates a FakeService where every call succeeds.
func NewFakeService() *FakeService {
	return &FakeService{
		submitErrs:  make(map[phase.Phase][]error),
		generateErr: make(map[phase.Phase][]error),
		artifacts:   make(map[phase.Phase]artifact.Artifact),
		gates:       make(map[phase.Phase]*Gate),
	}
}

// FailSubmit queues outcomes for the next submits of p. A nil entry is a
// success.
func (f *FakeService) FailSubmit(p phase.Phase, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitErrs[p] = append(f.submitErrs[p], errs...)
}

// FailGenerate queues outcomes for the next generates of p.
func (f *FakeService) FailGenerate(p phase.Phase, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.generateErr[p] = append(f.generateErr[p], errs...)
}

// SetArtifact makes generate return a for p.
func (f *FakeService) SetArtifact(p phase.Phase, a artifact.Artifact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.artifacts[p] = a
}

// Hold makes the next call on p block until the returned gate is released
// or the call's context ends.
func (f *FakeService) Hold(p phase.Phase) *Gate {
	g := &Gate{entered: make(chan struct{}), release: make(chan struct{})}
	f.mu.Lock()
	f.gates[p] = g
	f.mu.Unlock()
	return g
}

// Calls returns every call received so far.
func (f *FakeService) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsFor returns the calls received for p and action.
func (f *FakeService) CallsFor(p phase.Phase, action phasestate.Action) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Phase == p && c.Action == action {
			out = append(out, c)
		}
	}
	return out
}

func (f *FakeService) SubmitConfiguration(ctx context.Context, p phase.Phase, projectID string, cfg rules.Configuration) error {
	gate, err := f.enter(Call{Phase: p, Action: phasestate.ActionSubmit, ProjectID: projectID, Config: cfg.Clone()}, f.submitErrs)
	if werr := wait(ctx, gate); werr != nil {
		return &remote.TransportError{Phase: p, Action: phasestate.ActionSubmit, Message: "request aborted", Err: werr}
	}
	return err
}

func (f *FakeService) GenerateArtifact(ctx context.Context, p phase.Phase, projectID string) (artifact.Artifact, error) {
	gate, err := f.enter(Call{Phase: p, Action: phasestate.ActionGenerate, ProjectID: projectID}, f.generateErr)
	if werr := wait(ctx, gate); werr != nil {
		return nil, &remote.TransportError{Phase: p, Action: phasestate.ActionGenerate, Message: "request aborted", Err: werr}
	}
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	a, ok := f.artifacts[p]
	f.mu.Unlock()
	if !ok {
		a = DefaultArtifact(p)
	}
	return a, nil
}

// enter records c and pops its scripted outcome and gate.
func (f *FakeService) enter(c Call, script map[phase.Phase][]error) (*Gate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
	var err error
	if q := script[c.Phase]; len(q) > 0 {
		err = q[0]
		script[c.Phase] = q[1:]
	}
	gate := f.gates[c.Phase]
	delete(f.gates, c.Phase)
	return gate, err
}

func wait(ctx context.Context, g *Gate) error {
	if g == nil {
		return nil
	}
	close(g.entered)
	select {
	case <-g.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultArtifact returns a small artifact of the right kind for p.
func DefaultArtifact(p phase.Phase) artifact.Artifact {
	switch p {
	case phase.Source:
		return artifact.SourceText{Code: "int x = 1;"}
	case phase.Lexer:
		return artifact.TokenSet{Tokens: []artifact.Token{
			{Type: "type", Value: "int"},
			{Type: "id", Value: "x"},
			{Type: "assign", Value: "="},
			{Type: "num", Value: "1"},
			{Type: "semi", Value: ";"},
		}}
	case phase.Parser:
		return artifact.SyntaxTree{Root: &artifact.Node{Symbol: "S", Children: []*artifact.Node{
			{Symbol: "type", Value: "int"},
			{Symbol: "id", Value: "x"},
		}}}
	case phase.Analyser:
		return artifact.SymbolTable{Rows: []artifact.SymbolRow{{Type: "int", Name: "x", Scope: "global"}}}
	case phase.Translator:
		return artifact.TranslatedCode{Lines: []string{"x = 1"}}
	case phase.Optimiser:
		return artifact.TranslatedCode{Lines: []string{"x = 1"}}
	}
	return nil
}
