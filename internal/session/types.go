package session

import (
	"encoding/json"
	"time"

	"github.com/batonworks/baton/internal/pipeline"
)

// Status represents the lifecycle state of a session.
type Status string

const (
	// StatusRunning means the session is actively progressing through steps.
	StatusRunning Status = "running"
	// StatusPaused means the session is suspended and can be resumed.
	StatusPaused Status = "paused"
	// StatusCompleted means every step of the pipeline finished.
	StatusCompleted Status = "completed"
	// StatusFailed means a critical step failed or the session was aborted.
	StatusFailed Status = "failed"
)

// IsTerminal returns true if the session can no longer advance.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Valid returns true if the status is one of the known values.
func (s Status) Valid() bool {
	switch s {
	case StatusRunning, StatusPaused, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// AgentError records one reported step failure.
type AgentError struct {
	AgentKey  string    `json:"agent_key"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is the persistent record of one pipeline run.
//
// CurrentAgentIndex is a cursor into the effective step sequence: the
// static catalog alone before dynamic expansion, and static+generated
// afterwards. CompletedAgents grows by exactly one key per completed
// step, so len(CompletedAgents) == CurrentAgentIndex holds between
// operations.
type Session struct {
	// ID uniquely identifies the session. Always a UUID.
	ID string `json:"id"`

	// Query is the user request driving the pipeline.
	Query string `json:"query"`

	// Slug is the slugified query; it keys the structure artifact that
	// seeds dynamic expansion.
	Slug string `json:"slug"`

	// Pipeline names the catalog this session runs, e.g. "deep-research/v1".
	Pipeline string `json:"pipeline"`

	// Mode is an opaque caller tag, e.g. "standard".
	Mode string `json:"mode"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// CurrentPhase is the catalog phase the cursor currently sits in.
	CurrentPhase int `json:"current_phase"`

	// CurrentAgentIndex is the 0-based cursor into the effective sequence.
	CurrentAgentIndex int `json:"current_agent_index"`

	// TotalAgents is the effective step count: the static catalog length
	// until expansion, the frozen total afterwards.
	TotalAgents int `json:"total_agents"`

	// CompletedAgents lists completed agent keys in completion order.
	CompletedAgents []string `json:"completed_agents"`

	// AgentOutputs maps agent key to the opaque output the caller reported.
	AgentOutputs map[string]json.RawMessage `json:"agent_outputs"`

	// StartTime is when the session was created.
	StartTime time.Time `json:"start_time"`

	// LastActivityTime is when the session last changed; expiry is
	// measured from it.
	LastActivityTime time.Time `json:"last_activity_time"`

	// Errors lists reported step failures in order.
	Errors []AgentError `json:"errors"`

	// DynamicAgents holds the generated steps for the dynamic phase.
	// Present only after expansion.
	DynamicAgents []pipeline.Agent `json:"dynamic_agents,omitempty"`

	// DynamicTotalAgents is the effective total frozen at expansion time.
	// Once set it never changes, even if the structure artifact does.
	DynamicTotalAgents *int `json:"dynamic_total_agents,omitempty"`
}

// New creates a running session at the start of the given pipeline.
// The caller supplies the ID; the store validates it on Create.
func New(id, query, pipelineName, mode string, totalAgents int) *Session {
	now := time.Now()
	return &Session{
		ID:                id,
		Query:             query,
		Slug:              pipeline.Slugify(query),
		Pipeline:          pipelineName,
		Mode:              mode,
		Status:            StatusRunning,
		CurrentPhase:      1,
		CurrentAgentIndex: 0,
		TotalAgents:       totalAgents,
		CompletedAgents:   []string{},
		AgentOutputs:      make(map[string]json.RawMessage),
		StartTime:         now,
		LastActivityTime:  now,
		Errors:            []AgentError{},
	}
}

// Touch updates the last-activity timestamp.
func (s *Session) Touch() {
	s.LastActivityTime = time.Now()
}

// Expanded returns true once the dynamic phase has been expanded and
// its total frozen into the session.
func (s *Session) Expanded() bool {
	return s.DynamicTotalAgents != nil
}

// Elapsed returns the time since the session started.
func (s *Session) Elapsed() time.Duration {
	return time.Since(s.StartTime)
}

// RecordError appends a step failure to the session's error list.
func (s *Session) RecordError(agentKey, message string) {
	s.Errors = append(s.Errors, AgentError{
		AgentKey:  agentKey,
		Message:   message,
		Timestamp: time.Now(),
	})
}
