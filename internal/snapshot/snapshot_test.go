package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grammar() rules.Grammar {
	return rules.Grammar{
		Variables: []string{"S"},
		Terminals: []string{"a"},
		Start:     "S",
		Rules:     []rules.Production{{LHS: "S", RHS: []string{"a"}}},
	}
}

func TestRecord_RoundTripsState(t *testing.T) {
	st := phasestate.State{
		Phase:         phase.Parser,
		Configuration: grammar(),
		Submitted:     grammar(),
		Artifact: artifact.SyntaxTree{Root: &artifact.Node{
			Symbol:   "S",
			Children: []*artifact.Node{{Symbol: "a", Value: "a"}},
		}},
		Status: phasestate.Generated,
	}

	rec, err := FromState(st)
	require.NoError(t, err)

	got, err := rec.State()
	require.NoError(t, err)
	assert.Equal(t, st.Phase, got.Phase)
	assert.Equal(t, st.Status, got.Status)
	assert.Equal(t, st.Configuration, got.Configuration)
	assert.Equal(t, st.Submitted, got.Submitted)
	assert.Equal(t, st.Artifact, got.Artifact)
}

func TestRecord_DropsErrorCause(t *testing.T) {
	st := phasestate.State{
		Phase:         phase.Lexer,
		Configuration: rules.LexerRuleSet{Rules: []rules.TokenRule{{Type: "num", Pattern: `\d+`}}},
		Status:        phasestate.Error,
		Detail:        &phasestate.Detail{Action: phasestate.ActionSubmit, Message: "unreachable", Cause: errors.New("dial tcp")},
	}
	rec, err := FromState(st)
	require.NoError(t, err)
	require.NotNil(t, rec.Detail)
	assert.Nil(t, rec.Detail.Cause)
	assert.NotNil(t, st.Detail.Cause, "source state must not be mutated")
}

func TestRecord_RejectsConfigurationOfAnotherPhase(t *testing.T) {
	raw, err := rules.Encode(grammar())
	require.NoError(t, err)
	rec := Record{Phase: phase.Lexer, Status: phasestate.Configuring, Configuration: raw}
	_, err = rec.State()
	assert.ErrorIs(t, err, rules.ErrPhaseMismatch)
}

func TestBadgerStore_SaveLoadDelete(t *testing.T) {
	store, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	ctx := context.Background()

	_, err = store.Load(ctx, "p1")
	require.ErrorIs(t, err, ErrNotFound)

	rec, err := FromState(phasestate.State{Phase: phase.Parser, Configuration: grammar(), Status: phasestate.Configuring})
	require.NoError(t, err)
	snap := Snapshot{ProjectID: "p1", SessionID: "s1", SavedAt: time.Unix(1700000000, 0).UTC(), Phases: []Record{rec}}
	require.NoError(t, store.Save(ctx, snap))

	got, err := store.Load(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, snap.SessionID, got.SessionID)
	assert.True(t, snap.SavedAt.Equal(got.SavedAt))
	require.Len(t, got.Phases, 1)
	st, err := got.Phases[0].State()
	require.NoError(t, err)
	assert.Equal(t, grammar(), st.Configuration)

	require.NoError(t, store.Delete(ctx, "p1"))
	_, err = store.Load(ctx, "p1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, store.Delete(ctx, "p1"))
}

func TestBadgerStore_Validation(t *testing.T) {
	_, err := OpenBadger(BadgerConfig{})
	assert.Error(t, err)

	store, err := OpenBadger(BadgerConfig{InMemory: true})
	require.NoError(t, err)
	defer store.Close()
	assert.Error(t, store.Save(context.Background(), Snapshot{}))
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	store, err := OpenBadger(BadgerConfig{Dir: dir, SyncWrites: true})
	require.NoError(t, err)
	require.NoError(t, store.Save(context.Background(), Snapshot{ProjectID: "p"}))
	require.NoError(t, store.Close())

	store, err = OpenBadger(BadgerConfig{Dir: dir})
	require.NoError(t, err)
	defer store.Close()
	got, err := store.Load(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, "p", got.ProjectID)
}
