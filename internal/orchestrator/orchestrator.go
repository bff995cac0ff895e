package orchestrator

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/logging"
	"github.com/batonworks/baton/internal/memory"
	"github.com/batonworks/baton/internal/pipeline"
	"github.com/batonworks/baton/internal/prompt"
	"github.com/batonworks/baton/internal/session"
)

// outputDigestLimit caps how much of a stored output is surfaced in
// dependent prompts.
const outputDigestLimit = 200

// Orchestrator is the session state machine. It resolves the current
// step, advances on completion, freezes dynamic expansion exactly once
// per session, and guards every operation against expiry.
//
// All session routing goes through pipeline.ResolveStep, so Next,
// Complete, Fail, and Resume can never disagree about which step the
// cursor refers to.
type Orchestrator struct {
	store       *session.Store
	cat         *pipeline.Catalog
	expander    Expander
	prompts     PromptBuilder
	scorer      QualityScorer
	memory      EpisodicMemory
	checkpoints Checkpointer
	log         *logging.Logger
}

// Deps bundles the orchestrator's collaborators.
type Deps struct {
	Store       *session.Store
	Catalog     *pipeline.Catalog
	Expander    Expander
	Prompts     PromptBuilder
	Scorer      QualityScorer
	Memory      EpisodicMemory
	Checkpoints Checkpointer
	Log         *logging.Logger
}

// New creates an orchestrator over the given collaborators.
// Memory and Checkpoints may be nil; those enrichments are skipped.
func New(deps Deps) *Orchestrator {
	log := deps.Log
	if log == nil {
		log = logging.NopLogger()
	}
	mem := deps.Memory
	if mem == nil {
		mem = memory.Nop{}
	}
	scorer := deps.Scorer
	if scorer == nil {
		scorer = FixedScorer{Value: 0.5}
	}
	return &Orchestrator{
		store:       deps.Store,
		cat:         deps.Catalog,
		expander:    deps.Expander,
		prompts:     deps.Prompts,
		scorer:      scorer,
		memory:      mem,
		checkpoints: deps.Checkpoints,
		log:         log.WithComponent("orchestrator"),
	}
}

// -----------------------------------------------------------------------------
// Results
// -----------------------------------------------------------------------------

// Progress summarizes how far a session has advanced.
type Progress struct {
	Completed int `json:"completed"`
	Total     int `json:"total"`
	Phase     int `json:"phase"`
}

// StepPayload describes the step a caller should execute next.
type StepPayload struct {
	SessionID  string         `json:"session_id"`
	Agent      pipeline.Agent `json:"agent"`
	Kind       string         `json:"kind"`
	Phase      int            `json:"phase"`
	PhaseName  string         `json:"phase_name,omitempty"`
	Prompt     string         `json:"prompt"`
	MemoryUsed bool           `json:"memory_used,omitempty"`
	Progress   Progress       `json:"progress"`
}

// Summary describes a finished pipeline.
type Summary struct {
	SessionID       string         `json:"session_id"`
	Status          session.Status `json:"status"`
	DurationSeconds float64        `json:"duration_seconds"`
	Completed       int            `json:"completed"`
	Total           int            `json:"total"`
	Errors          int            `json:"errors"`
}

// NextResult is either the next step to run or a terminal summary.
type NextResult struct {
	Done    bool         `json:"done"`
	Step    *StepPayload `json:"step,omitempty"`
	Summary *Summary     `json:"summary,omitempty"`
}

// CompleteResult reports a successful step completion.
type CompleteResult struct {
	SessionID    string         `json:"session_id"`
	Agent        string         `json:"agent"`
	NextIndex    int            `json:"next_index"`
	Phase        int            `json:"phase"`
	Status       session.Status `json:"status"`
	Done         bool           `json:"done"`
	Quality      float64        `json:"quality"`
	CheckpointID string         `json:"checkpoint_id,omitempty"`
}

// FailResult reports a recorded step failure.
type FailResult struct {
	SessionID string         `json:"session_id"`
	Agent     string         `json:"agent"`
	Status    session.Status `json:"status"`
	Critical  bool           `json:"critical"`
	Errors    int            `json:"errors"`
}

// StatusResult is the progress projection of one session.
type StatusResult struct {
	SessionID      string         `json:"session_id"`
	Query          string         `json:"query"`
	Pipeline       string         `json:"pipeline"`
	Status         session.Status `json:"status"`
	Phase          int            `json:"phase"`
	CurrentIndex   int            `json:"current_index"`
	TotalAgents    int            `json:"total_agents"`
	Completed      int            `json:"completed"`
	Errors         int            `json:"errors"`
	Expired        bool           `json:"expired"`
	ElapsedSeconds float64        `json:"elapsed_seconds"`
}

// -----------------------------------------------------------------------------
// Operations
// -----------------------------------------------------------------------------

// Init creates a fresh session for the given query and persists it.
func (o *Orchestrator) Init(query, mode string) (*session.Session, error) {
	if query == "" {
		return nil, errors.NewValidationError("query is required").WithField("query")
	}
	if mode == "" {
		mode = "standard"
	}

	s, err := o.store.Create(uuid.NewString(), query, o.cat.Name, mode, o.cat.StaticTotal())
	if err != nil {
		return nil, err
	}
	o.log.Info("initialized session", "session_id", s.ID, "slug", s.Slug, "mode", mode)
	return s, nil
}

// Next returns the step the session should execute now, or a terminal
// summary once the pipeline is done. It does not advance the cursor;
// the only write it may perform is the one-time dynamic expansion.
func (o *Orchestrator) Next(id string) (*NextResult, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return &NextResult{Done: true, Summary: o.summary(s)}, nil
	}

	ref, err := o.currentStep(s)
	if err != nil {
		return nil, err
	}
	if ref.IsTerminal() {
		return &NextResult{Done: true, Summary: o.summary(s)}, nil
	}

	step, err := o.stepPayload(s, ref)
	if err != nil {
		return nil, err
	}
	return &NextResult{Step: step}, nil
}

// Complete records the completion of the session's current step and
// advances the cursor.
//
// The reported agent key must match the expected current step; on
// mismatch the session is left untouched and the error carries both
// keys. On success the activity clock is touched, the session is
// persisted, and a checkpoint is taken best-effort.
func (o *Orchestrator) Complete(id, agentKey string, output json.RawMessage) (*CompleteResult, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, errors.NewSessionError("session already finished", errors.ErrSessionTerminal).WithSessionID(id)
	}

	ref, err := o.currentStep(s)
	if err != nil {
		return nil, err
	}
	if ref.IsTerminal() {
		return nil, errors.NewSessionError("all steps already completed", errors.ErrSessionTerminal).WithSessionID(id)
	}
	if ref.Agent.Key != agentKey {
		return nil, errors.NewMismatchError(id, ref.Agent.Key, agentKey)
	}

	s.CompletedAgents = append(s.CompletedAgents, agentKey)
	if len(output) > 0 {
		s.AgentOutputs[agentKey] = output
	}
	s.CurrentAgentIndex++
	s.CurrentPhase = pipeline.PhaseForIndex(o.cat, s.DynamicAgents, s.CurrentAgentIndex)
	s.Touch()

	done := s.CurrentAgentIndex >= pipeline.EffectiveTotal(o.cat, s.DynamicAgents)
	if done {
		s.Status = session.StatusCompleted
	}

	if err := o.store.Save(s); err != nil {
		return nil, err
	}

	result := &CompleteResult{
		SessionID: id,
		Agent:     agentKey,
		NextIndex: s.CurrentAgentIndex,
		Phase:     s.CurrentPhase,
		Status:    s.Status,
		Done:      done,
	}

	// Everything below is enrichment. A failing scorer, checkpoint, or
	// memory write must never fail a step that already persisted.
	quality := o.scorer.Score(output, o.promptContext(s, ref))
	result.Quality = quality
	if o.checkpoints != nil {
		cp, err := o.checkpoints.Create(id, ref.Agent.Phase, agentKey, s.CompletedAgents, quality)
		if err != nil {
			o.log.Warn("checkpoint creation failed", "session_id", id, "agent_key", agentKey, "error", err)
		} else {
			result.CheckpointID = cp.ID
		}
	}
	if err := o.memory.Record(memory.Episode{
		SessionID: id,
		Slug:      s.Slug,
		AgentKey:  agentKey,
		Summary:   "completed " + ref.Agent.Name,
	}); err != nil {
		o.log.Warn("episodic memory record failed", "session_id", id, "error", err)
	}

	o.log.Info("completed step",
		"session_id", id, "agent_key", agentKey,
		"next_index", s.CurrentAgentIndex, "status", string(s.Status))
	return result, nil
}

// Fail records a failure of the session's current step without
// advancing. A critical step's failure terminates the session.
func (o *Orchestrator) Fail(id, agentKey, message string) (*FailResult, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, errors.NewSessionError("session already finished", errors.ErrSessionTerminal).WithSessionID(id)
	}

	ref, err := o.currentStep(s)
	if err != nil {
		return nil, err
	}
	if ref.IsTerminal() {
		return nil, errors.NewSessionError("all steps already completed", errors.ErrSessionTerminal).WithSessionID(id)
	}
	if ref.Agent.Key != agentKey {
		return nil, errors.NewMismatchError(id, ref.Agent.Key, agentKey)
	}

	s.RecordError(agentKey, message)
	s.Touch()
	if ref.Agent.Critical {
		s.Status = session.StatusFailed
	}
	if err := o.store.Save(s); err != nil {
		return nil, err
	}

	o.log.Warn("step failed",
		"session_id", id, "agent_key", agentKey,
		"critical", ref.Agent.Critical, "message", message)
	return &FailResult{
		SessionID: id,
		Agent:     agentKey,
		Status:    s.Status,
		Critical:  ref.Agent.Critical,
		Errors:    len(s.Errors),
	}, nil
}

// Resume returns the current step without advancing, transitioning a
// paused session back to running first.
func (o *Orchestrator) Resume(id string) (*NextResult, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}

	if s.Status == session.StatusPaused {
		s.Status = session.StatusRunning
		s.Touch()
		if err := o.store.Save(s); err != nil {
			return nil, err
		}
		o.log.Info("resumed session", "session_id", id)
	}

	if s.Status.IsTerminal() {
		return &NextResult{Done: true, Summary: o.summary(s)}, nil
	}

	ref, err := o.currentStep(s)
	if err != nil {
		return nil, err
	}
	if ref.IsTerminal() {
		return &NextResult{Done: true, Summary: o.summary(s)}, nil
	}

	step, err := o.stepPayload(s, ref)
	if err != nil {
		return nil, err
	}
	return &NextResult{Step: step}, nil
}

// Pause suspends a running session.
func (o *Orchestrator) Pause(id string) (*session.Session, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Status != session.StatusRunning {
		return nil, errors.NewSessionError("only running sessions can be paused", errors.ErrInvalidInput).WithSessionID(id)
	}

	s.Status = session.StatusPaused
	s.Touch()
	if err := o.store.Save(s); err != nil {
		return nil, err
	}
	o.log.Info("paused session", "session_id", id)
	return s, nil
}

// Abort terminates a session, recording the abort as its final error.
func (o *Orchestrator) Abort(id string) (*session.Session, error) {
	s, err := o.loadActive(id)
	if err != nil {
		return nil, err
	}
	if s.Status.IsTerminal() {
		return nil, errors.NewSessionError("session already finished", errors.ErrSessionTerminal).WithSessionID(id)
	}

	s.RecordError("", "aborted")
	s.Status = session.StatusFailed
	s.Touch()
	if err := o.store.Save(s); err != nil {
		return nil, err
	}
	o.log.Info("aborted session", "session_id", id)
	return s, nil
}

// Status returns progress counters for a session. Unlike the mutating
// operations it does not reject expired sessions; it reports expiry as
// a flag so callers can see why a session refuses to advance.
func (o *Orchestrator) Status(id string) (*StatusResult, error) {
	s, err := o.store.Load(id)
	if err != nil {
		return nil, err
	}

	return &StatusResult{
		SessionID:      s.ID,
		Query:          s.Query,
		Pipeline:       s.Pipeline,
		Status:         s.Status,
		Phase:          s.CurrentPhase,
		CurrentIndex:   s.CurrentAgentIndex,
		TotalAgents:    s.TotalAgents,
		Completed:      len(s.CompletedAgents),
		Errors:         len(s.Errors),
		Expired:        o.store.IsExpired(s),
		ElapsedSeconds: s.Elapsed().Seconds(),
	}, nil
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

// loadActive loads a session and enforces the expiry guard shared by
// every operation that reads or mutates live session state.
func (o *Orchestrator) loadActive(id string) (*session.Session, error) {
	s, err := o.store.Load(id)
	if err != nil {
		return nil, err
	}
	if o.store.IsExpired(s) {
		return nil, errors.NewSessionError("session inactive past TTL", errors.ErrSessionExpired).WithSessionID(id)
	}
	return s, nil
}

// currentStep resolves the session's cursor, attempting the one-time
// dynamic expansion first when the cursor has reached the dynamic phase.
//
// Expansion preconditions that are not met yet (structure absent or
// unlocked) are expected during normal progression: the cursor falls
// back to static routing and expansion is retried on the next call.
// Structural problems in a locked artifact do surface as errors.
func (o *Orchestrator) currentStep(s *session.Session) (pipeline.StepRef, error) {
	if pipeline.ExpansionPending(o.cat, s.DynamicAgents, s.CurrentAgentIndex, s.Expanded()) {
		if err := o.tryExpand(s); err != nil {
			return pipeline.StepRef{}, err
		}
	}
	return pipeline.ResolveStep(o.cat, s.DynamicAgents, s.CurrentAgentIndex), nil
}

// tryExpand runs dynamic expansion and freezes the result into the
// session. Called at most once per session with effect: once
// DynamicTotalAgents is set, ExpansionPending never reports true again,
// so later structure edits cannot change this session's plan.
func (o *Orchestrator) tryExpand(s *session.Session) error {
	agents, err := o.expander.Expand(s.Slug)
	if err != nil {
		if errors.Is(err, errors.ErrStructureNotReady) || errors.Is(err, errors.ErrStructureNotLocked) {
			o.log.Debug("expansion not ready, continuing static",
				"session_id", s.ID, "slug", s.Slug, "reason", err)
			return nil
		}
		return err
	}

	total := pipeline.EffectiveTotal(o.cat, agents)
	s.DynamicAgents = agents
	s.DynamicTotalAgents = &total
	s.TotalAgents = total
	s.CurrentPhase = pipeline.PhaseForIndex(o.cat, agents, s.CurrentAgentIndex)
	if err := o.store.Save(s); err != nil {
		return err
	}

	o.log.Info("expanded dynamic phase",
		"session_id", s.ID, "slug", s.Slug,
		"generated", len(agents), "total", total)
	return nil
}

// stepPayload builds the full step result for Next/Resume, including
// the rendered prompt with best-effort memory injection.
func (o *Orchestrator) stepPayload(s *session.Session, ref pipeline.StepRef) (*StepPayload, error) {
	ctx := o.promptContext(s, ref)
	text, err := o.prompts.Build(ref.Agent, ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build step prompt")
	}

	augmented, used, err := o.memory.Inject(text, memory.InjectOptions{Slug: s.Slug})
	if err != nil {
		o.log.Warn("episodic memory injection failed", "session_id", s.ID, "error", err)
		augmented, used = text, false
	}

	phaseName := ""
	if p, ok := o.cat.PhaseByID(ref.Agent.Phase); ok {
		phaseName = p.Name
	}

	return &StepPayload{
		SessionID:  s.ID,
		Agent:      *ref.Agent,
		Kind:       ref.Kind.String(),
		Phase:      ref.Agent.Phase,
		PhaseName:  phaseName,
		Prompt:     augmented,
		MemoryUsed: used,
		Progress: Progress{
			Completed: len(s.CompletedAgents),
			Total:     pipeline.EffectiveTotal(o.cat, s.DynamicAgents),
			Phase:     ref.Agent.Phase,
		},
	}, nil
}

// promptContext projects session state into the context collaborators
// consume.
func (o *Orchestrator) promptContext(s *session.Session, ref pipeline.StepRef) prompt.Context {
	phaseName := ""
	phase := s.CurrentPhase
	if ref.Agent != nil {
		phase = ref.Agent.Phase
	}
	if p, ok := o.cat.PhaseByID(phase); ok {
		phaseName = p.Name
	}

	digests := make(map[string]string, len(s.AgentOutputs))
	for key, raw := range s.AgentOutputs {
		digests[key] = digestOutput(raw)
	}

	return prompt.Context{
		SessionID:       s.ID,
		Query:           s.Query,
		Slug:            s.Slug,
		Phase:           phase,
		PhaseName:       phaseName,
		CompletedAgents: s.CompletedAgents,
		RecentOutputs:   digests,
	}
}

// summary projects a session into its terminal summary.
func (o *Orchestrator) summary(s *session.Session) *Summary {
	status := s.Status
	if !status.IsTerminal() {
		// The cursor ran off the end but the status write was lost;
		// report what the counters imply.
		status = session.StatusCompleted
	}
	return &Summary{
		SessionID:       s.ID,
		Status:          status,
		DurationSeconds: time.Since(s.StartTime).Seconds(),
		Completed:       len(s.CompletedAgents),
		Total:           pipeline.EffectiveTotal(o.cat, s.DynamicAgents),
		Errors:          len(s.Errors),
	}
}

// digestOutput turns a stored raw output into a short plain-text digest
// for dependent prompts.
func digestOutput(raw json.RawMessage) string {
	text := string(raw)

	// Unwrap plain JSON strings so prompts do not show quotes.
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		text = str
	}

	if len(text) > outputDigestLimit {
		text = text[:outputDigestLimit] + "..."
	}
	return text
}
