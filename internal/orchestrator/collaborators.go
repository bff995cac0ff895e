package orchestrator

import (
	"encoding/json"

	"github.com/batonworks/baton/internal/checkpoint"
	"github.com/batonworks/baton/internal/memory"
	"github.com/batonworks/baton/internal/pipeline"
	"github.com/batonworks/baton/internal/prompt"
)

// PromptBuilder renders the instruction text for one step.
type PromptBuilder interface {
	Build(agent *pipeline.Agent, ctx prompt.Context) (string, error)
}

// QualityScorer rates a step's output in [0, 1]. The real heuristic is
// an external collaborator; baton only consumes the score.
type QualityScorer interface {
	Score(output json.RawMessage, ctx prompt.Context) float64
}

// FixedScorer is a QualityScorer that returns a constant.
type FixedScorer struct {
	// Value is the score returned for every output, clamped to [0, 1].
	Value float64
}

// Score returns the fixed value.
func (s FixedScorer) Score(json.RawMessage, prompt.Context) float64 {
	switch {
	case s.Value < 0:
		return 0
	case s.Value > 1:
		return 1
	}
	return s.Value
}

// EpisodicMemory enriches prompts with past episodes and records new
// ones. Both operations are strictly best-effort: the orchestrator logs
// failures and continues.
type EpisodicMemory interface {
	Inject(prompt string, opts memory.InjectOptions) (string, bool, error)
	Record(ep memory.Episode) error
}

// Expander synthesizes the dynamic phase's steps from a locked
// structure.
type Expander interface {
	Expand(slug string) ([]pipeline.Agent, error)
}

// Checkpointer records progress snapshots after completed steps.
type Checkpointer interface {
	Create(sessionID string, phase int, agentKey string, completed []string, quality float64) (*checkpoint.Checkpoint, error)
}
