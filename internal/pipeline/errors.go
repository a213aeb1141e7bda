package pipeline

import "errors"

var (
	// ErrLocked is returned when submitting a phase whose upstream phases
	// are not all Generated.
	ErrLocked = errors.New("phase is locked until every upstream phase is generated")
	// ErrNotSubmitted is returned when generating a phase that holds no
	// accepted submission.
	ErrNotSubmitted = errors.New("phase has no accepted submission to generate from")
	// ErrUnknownPhase is returned for a phase value outside the pipeline.
	ErrUnknownPhase = errors.New("unknown phase")
	// ErrNoConfiguration is returned when submitting a phase that was never
	// configured.
	ErrNoConfiguration = errors.New("phase has no configuration")
)
