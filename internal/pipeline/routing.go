package pipeline

// -----------------------------------------------------------------------------
// Step routing
// -----------------------------------------------------------------------------

// StepKind tags which sequence a resolved step came from.
type StepKind string

const (
	// StepStatic is a step defined by the catalog.
	StepStatic StepKind = "static"

	// StepGenerated is a step synthesized by expansion for the dynamic phase.
	StepGenerated StepKind = "generated"

	// StepTerminal means the cursor is past the last step of the pipeline.
	StepTerminal StepKind = "terminal"
)

// String returns the string representation of the step kind.
func (k StepKind) String() string {
	return string(k)
}

// StepRef is the result of resolving a cursor index against a catalog.
type StepRef struct {
	// Kind tags which sequence the step came from.
	Kind StepKind

	// Agent is the resolved step definition. Nil when Kind is StepTerminal.
	Agent *Agent

	// Index is the step's position within its own sequence: the static
	// catalog for StepStatic, the generated list for StepGenerated.
	// -1 when Kind is StepTerminal.
	Index int
}

// IsTerminal returns true if the cursor is past the end of the pipeline.
func (r StepRef) IsTerminal() bool {
	return r.Kind == StepTerminal
}

// EffectiveTotal returns the total number of steps in the pipeline given
// the session's generated steps (nil or empty before expansion).
func EffectiveTotal(cat *Catalog, generated []Agent) int {
	return cat.StaticTotal() + len(generated)
}

// ResolveStep maps a cursor index onto a concrete step. It is the single
// routing rule shared by every session operation, so advancing, completing,
// and resuming can never disagree about what an index means.
//
// Before expansion the catalog routes purely statically: generated steps do
// not exist and the static agents occupy consecutive indices. This is also
// the fallback while the dynamic phase's structure is absent or unlocked.
// After expansion, indices inside [dynamicStart, dynamicStart+n) route to
// the generated list and later static agents shift right by n.
func ResolveStep(cat *Catalog, generated []Agent, index int) StepRef {
	if index < 0 || index >= EffectiveTotal(cat, generated) {
		return StepRef{Kind: StepTerminal, Index: -1}
	}

	n := len(generated)
	if n == 0 {
		agent, _ := cat.StaticAgent(index)
		return StepRef{Kind: StepStatic, Agent: agent, Index: index}
	}

	start := cat.DynamicStart()
	switch {
	case index < start:
		agent, _ := cat.StaticAgent(index)
		return StepRef{Kind: StepStatic, Agent: agent, Index: index}
	case index < start+n:
		return StepRef{Kind: StepGenerated, Agent: &generated[index-start], Index: index - start}
	default:
		agent, _ := cat.StaticAgent(index - n)
		return StepRef{Kind: StepStatic, Agent: agent, Index: index - n}
	}
}

// PhaseForIndex returns the phase number the given cursor index sits in.
// A terminal index reports the catalog's last phase, so a completed
// session shows the phase it finished in.
func PhaseForIndex(cat *Catalog, generated []Agent, index int) int {
	ref := ResolveStep(cat, generated, index)
	if ref.IsTerminal() {
		return cat.LastPhaseID()
	}
	return ref.Agent.Phase
}

// ExpansionPending reports whether the cursor has reached the dynamic
// phase without the session holding generated steps yet. The frozen flag
// distinguishes "never expanded" from "expanded before" so a session
// whose expansion already happened is not re-expanded.
func ExpansionPending(cat *Catalog, generated []Agent, index int, frozen bool) bool {
	return !frozen && len(generated) == 0 && index >= cat.DynamicStart()
}
