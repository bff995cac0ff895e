package pipeline

import "time"

// -----------------------------------------------------------------------------
// Agent
// -----------------------------------------------------------------------------

// Agent defines one pipeline step: who runs, in which phase, and what it
// is expected to produce. Definitions are immutable; they come from the
// static catalog or are synthesized by the Expander for the dynamic phase.
type Agent struct {
	// Key uniquely identifies this agent within the pipeline.
	// Stable across runs; used in completion records and output maps.
	Key string `json:"key"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Phase is the catalog phase this agent belongs to.
	Phase int `json:"phase"`

	// DependsOn lists agent keys whose output this agent consumes.
	// Informational; the pipeline is strictly sequential.
	DependsOn []string `json:"depends_on,omitempty"`

	// TimeoutMinutes bounds how long one execution of this step may run.
	TimeoutMinutes int `json:"timeout_minutes"`

	// Critical marks steps whose failure terminates the session.
	// Non-critical failures are recorded and the step can be retried.
	Critical bool `json:"critical"`

	// Outputs names the artifacts this agent is expected to produce.
	Outputs []string `json:"outputs,omitempty"`
}

// Timeout returns the step timeout as a duration.
func (a *Agent) Timeout() time.Duration {
	return time.Duration(a.TimeoutMinutes) * time.Minute
}

// HasDependencies returns true if this agent consumes earlier output.
func (a *Agent) HasDependencies() bool {
	return len(a.DependsOn) > 0
}

// -----------------------------------------------------------------------------
// Phase
// -----------------------------------------------------------------------------

// Phase groups consecutive catalog agents under one numbered stage.
type Phase struct {
	// ID is the phase number, starting at 1 and strictly increasing.
	ID int `json:"id"`

	// Name is the human-readable phase name.
	Name string `json:"name"`

	// Description summarizes what the phase accomplishes.
	Description string `json:"description,omitempty"`

	// AgentKeys lists the static agents in this phase, in execution order.
	// Empty for the dynamic phase, whose agents are generated at runtime.
	AgentKeys []string `json:"agents"`

	// Dynamic marks the phase whose agents come from a locked structure.
	Dynamic bool `json:"dynamic,omitempty"`
}

// Size returns the number of static agents in this phase.
func (p *Phase) Size() int {
	return len(p.AgentKeys)
}
