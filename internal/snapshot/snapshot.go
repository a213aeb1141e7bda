// Package snapshot defines the persisted shape of a pipeline session and
// stores it so a session can be rehydrated later.
//
// Configurations and artifacts are stored in their kind-tagged envelopes,
// so a record decodes without knowing which phase produced it.
package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// ErrNotFound is returned by Load when no snapshot exists for a project.
var ErrNotFound = errors.New("snapshot not found")

// Record is the persisted state of one phase.
type Record struct {
	Phase         phase.Phase        `json:"phase"`
	Status        phasestate.Status  `json:"status"`
	Configuration json.RawMessage    `json:"configuration,omitempty"`
	Submitted     json.RawMessage    `json:"submitted,omitempty"`
	Artifact      json.RawMessage    `json:"artifact,omitempty"`
	Detail        *phasestate.Detail `json:"detail,omitempty"`
}

// Snapshot is the persisted state of a whole session.
type Snapshot struct {
	ProjectID string    `json:"project_id"`
	SessionID string    `json:"session_id"`
	SavedAt   time.Time `json:"saved_at"`
	Phases    []Record  `json:"phases"`
}

// Store persists snapshots keyed by project id.
type Store interface {
	Save(ctx context.Context, s Snapshot) error
	Load(ctx context.Context, projectID string) (Snapshot, error)
	Delete(ctx context.Context, projectID string) error
	Close() error
}

// FromState encodes one phase state.
func FromState(st phasestate.State) (Record, error) {
	rec := Record{Phase: st.Phase, Status: st.Status}
	if st.Detail != nil {
		d := *st.Detail
		d.Cause = nil
		rec.Detail = &d
	}
	var err error
	if st.Configuration != nil {
		if rec.Configuration, err = rules.Encode(st.Configuration); err != nil {
			return Record{}, fmt.Errorf("%s configuration: %w", st.Phase, err)
		}
	}
	if st.Submitted != nil {
		if rec.Submitted, err = rules.Encode(st.Submitted); err != nil {
			return Record{}, fmt.Errorf("%s submitted configuration: %w", st.Phase, err)
		}
	}
	if st.Artifact != nil {
		if rec.Artifact, err = artifact.Encode(st.Artifact); err != nil {
			return Record{}, fmt.Errorf("%s artifact: %w", st.Phase, err)
		}
	}
	return rec, nil
}

// State decodes the record back into a phase state.
func (r Record) State() (phasestate.State, error) {
	st := phasestate.State{Phase: r.Phase, Status: r.Status, Detail: r.Detail}
	if !r.Phase.Valid() {
		return st, fmt.Errorf("snapshot record has unknown phase %d", int(r.Phase))
	}
	var err error
	if len(r.Configuration) > 0 {
		if st.Configuration, err = decodeConfig(r.Phase, r.Configuration); err != nil {
			return st, err
		}
	}
	if len(r.Submitted) > 0 {
		if st.Submitted, err = decodeConfig(r.Phase, r.Submitted); err != nil {
			return st, err
		}
	}
	if len(r.Artifact) > 0 {
		if st.Artifact, err = artifact.Decode(r.Artifact); err != nil {
			return st, fmt.Errorf("%s artifact: %w", r.Phase, err)
		}
	}
	return st, nil
}

func decodeConfig(p phase.Phase, raw []byte) (rules.Configuration, error) {
	cfg, err := rules.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s configuration: %w", p, err)
	}
	if cfg.Phase() != p {
		return nil, fmt.Errorf("%w: %s configuration stored for %s", rules.ErrPhaseMismatch, cfg.Phase(), p)
	}
	return cfg, nil
}
