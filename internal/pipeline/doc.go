/*
Package pipeline coordinates the phases of one compiler pipeline session.

A Session owns one phasestate.Store per phase, the dependency graph between
phases, the artifact cache and the remote service used to submit
configurations and generate artifacts. The canonical chain is

	Source -> Lexer -> Parser -> Analyser -> Translator

with the Optimiser as an independent branch that depends only on Source.

A phase is unlocked once every phase it transitively depends on is
Generated. Whenever a phase's configuration changes, or it starts a new
submit or generate, every downstream phase that holds a submission derived
from the old artifact is reset to Idle and its cached artifact is dropped.

Actions on different phases may run concurrently. A second action on the
same phase while one is in flight is rejected with phasestate.ErrInFlight.
Completions that arrive after the phase has moved on are discarded and
reported as phasestate.ErrStale.
*/
package pipeline
