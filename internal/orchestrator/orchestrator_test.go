package orchestrator

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/batonworks/baton/internal/checkpoint"
	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/memory"
	"github.com/batonworks/baton/internal/pipeline"
	"github.com/batonworks/baton/internal/prompt"
	"github.com/batonworks/baton/internal/session"
)

// staticKeys is the built-in catalog's static order.
var staticKeys = []string{
	"query-analyzer", "research-planner",
	"web-researcher", "source-curator",
	"outline-architect", "outline-reviewer",
	"coherence-editor", "citation-auditor", "final-compiler",
}

// fakeExpander scripts dynamic expansion for tests.
type fakeExpander struct {
	agents []pipeline.Agent
	err    error
	calls  int
}

func (f *fakeExpander) Expand(string) ([]pipeline.Agent, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.agents, nil
}

// fakeCheckpointer records checkpoint creations.
type fakeCheckpointer struct {
	created []string
	err     error
}

func (f *fakeCheckpointer) Create(sessionID string, phase int, agentKey string, completed []string, quality float64) (*checkpoint.Checkpoint, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.created = append(f.created, agentKey)
	return &checkpoint.Checkpoint{ID: "cp-" + agentKey, SessionID: sessionID, State: checkpoint.StateValid}, nil
}

// generated builds n compose agents in the dynamic phase.
func generated(n int) []pipeline.Agent {
	agents := make([]pipeline.Agent, n)
	for i := range agents {
		agents[i] = pipeline.Agent{
			Key:            "section-0" + string(rune('1'+i)),
			Name:           "Compose: Section",
			Phase:          pipeline.Default.DynamicPhaseID(),
			TimeoutMinutes: 20,
			Critical:       true,
		}
	}
	return agents
}

type testEnv struct {
	orch        *Orchestrator
	store       *session.Store
	expander    *fakeExpander
	checkpoints *fakeCheckpointer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := session.NewStore(t.TempDir(), session.DefaultOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	exp := &fakeExpander{err: errors.NewStructureError("no structure artifact", errors.ErrStructureNotReady)}
	cps := &fakeCheckpointer{}
	orch := New(Deps{
		Store:       st,
		Catalog:     pipeline.Default,
		Expander:    exp,
		Prompts:     prompt.NewBuilder(),
		Scorer:      FixedScorer{Value: 0.7},
		Memory:      memory.Nop{},
		Checkpoints: cps,
	})
	return &testEnv{orch: orch, store: st, expander: exp, checkpoints: cps}
}

// completeThrough completes the first n static steps.
func (e *testEnv) completeThrough(t *testing.T, id string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if _, err := e.orch.Complete(id, staticKeys[i], json.RawMessage(`"ok"`)); err != nil {
			t.Fatalf("Complete(%s) error = %v", staticKeys[i], err)
		}
	}
}

func TestOrchestrator_Init(t *testing.T) {
	e := newTestEnv(t)

	s, err := e.orch.Init("topic X", "")
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if s.CurrentPhase != 1 {
		t.Errorf("CurrentPhase = %d, want 1", s.CurrentPhase)
	}
	if s.CurrentAgentIndex != 0 {
		t.Errorf("CurrentAgentIndex = %d, want 0", s.CurrentAgentIndex)
	}
	if len(s.CompletedAgents) != 0 {
		t.Errorf("CompletedAgents = %v, want empty", s.CompletedAgents)
	}
	if s.TotalAgents != pipeline.Default.StaticTotal() {
		t.Errorf("TotalAgents = %d, want %d", s.TotalAgents, pipeline.Default.StaticTotal())
	}
	if s.Mode != "standard" {
		t.Errorf("Mode = %q, want default standard", s.Mode)
	}
	if !e.store.Exists(s.ID) {
		t.Error("Init() did not persist the session")
	}

	if _, err := e.orch.Init("", "standard"); err == nil {
		t.Error("Init() with empty query should fail")
	}
}

func TestOrchestrator_Next_ReturnsFirstStep(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	res, err := e.orch.Next(s.ID)
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if res.Done {
		t.Fatal("Next() on fresh session reported done")
	}
	if res.Step.Agent.Key != "query-analyzer" {
		t.Errorf("first step = %q, want query-analyzer", res.Step.Agent.Key)
	}
	if res.Step.Phase != 1 {
		t.Errorf("Phase = %d, want 1", res.Step.Phase)
	}
	if res.Step.Progress.Completed != 0 || res.Step.Progress.Total != 9 {
		t.Errorf("Progress = %+v, want 0/9", res.Step.Progress)
	}
	if !strings.Contains(res.Step.Prompt, "topic X") {
		t.Error("prompt does not mention the query")
	}
}

func TestOrchestrator_Next_Idempotent(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	for i := 0; i < 3; i++ {
		if _, err := e.orch.Next(s.ID); err != nil {
			t.Fatal(err)
		}
	}

	loaded, err := e.store.Load(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.CurrentAgentIndex != 0 || len(loaded.CompletedAgents) != 0 {
		t.Errorf("repeated Next mutated progress: index=%d completed=%d",
			loaded.CurrentAgentIndex, len(loaded.CompletedAgents))
	}
}

func TestOrchestrator_Complete_Advances(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	res, err := e.orch.Complete(s.ID, "query-analyzer", json.RawMessage(`{"summary":"done"}`))
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if res.NextIndex != 1 {
		t.Errorf("NextIndex = %d, want 1", res.NextIndex)
	}
	if res.Quality != 0.7 {
		t.Errorf("Quality = %v, want the scorer's 0.7", res.Quality)
	}
	if res.CheckpointID == "" {
		t.Error("CheckpointID empty, want a checkpoint per completed step")
	}

	loaded, _ := e.store.Load(s.ID)
	if len(loaded.CompletedAgents) != 1 || loaded.CompletedAgents[0] != "query-analyzer" {
		t.Errorf("CompletedAgents = %v", loaded.CompletedAgents)
	}
	if string(loaded.AgentOutputs["query-analyzer"]) != `{"summary":"done"}` {
		t.Errorf("stored output = %s", loaded.AgentOutputs["query-analyzer"])
	}
}

func TestOrchestrator_Complete_ProgressInvariant(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	// After N completions: len(completed) == index == N.
	for n := 1; n <= 4; n++ {
		if _, err := e.orch.Complete(s.ID, staticKeys[n-1], nil); err != nil {
			t.Fatal(err)
		}
		loaded, _ := e.store.Load(s.ID)
		if len(loaded.CompletedAgents) != n || loaded.CurrentAgentIndex != n {
			t.Fatalf("after %d completions: completed=%d index=%d",
				n, len(loaded.CompletedAgents), loaded.CurrentAgentIndex)
		}
	}
}

func TestOrchestrator_Complete_Mismatch(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	_, err := e.orch.Complete(s.ID, "web-researcher", nil)
	if err == nil {
		t.Fatal("Complete() with wrong key should fail")
	}

	var mismatch *errors.MismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %T, want *MismatchError", err)
	}
	if mismatch.Expected != "query-analyzer" || mismatch.Received != "web-researcher" {
		t.Errorf("mismatch carries (%q, %q), want (query-analyzer, web-researcher)",
			mismatch.Expected, mismatch.Received)
	}

	// The persisted session must be untouched.
	loaded, _ := e.store.Load(s.ID)
	if loaded.CurrentAgentIndex != 0 || len(loaded.CompletedAgents) != 0 {
		t.Error("mismatched Complete mutated the session")
	}
}

func TestOrchestrator_ExpiryGuard(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	s.LastActivityTime = time.Now().Add(-25 * time.Hour)
	if err := e.store.Save(s); err != nil {
		t.Fatal(err)
	}

	ops := map[string]func() error{
		"Next":     func() error { _, err := e.orch.Next(s.ID); return err },
		"Complete": func() error { _, err := e.orch.Complete(s.ID, "query-analyzer", nil); return err },
		"Fail":     func() error { _, err := e.orch.Fail(s.ID, "query-analyzer", "x"); return err },
		"Resume":   func() error { _, err := e.orch.Resume(s.ID); return err },
		"Pause":    func() error { _, err := e.orch.Pause(s.ID); return err },
		"Abort":    func() error { _, err := e.orch.Abort(s.ID); return err },
	}
	for name, op := range ops {
		if err := op(); !errors.Is(err, errors.ErrSessionExpired) {
			t.Errorf("%s on expired session error = %v, want ErrSessionExpired", name, err)
		}
	}

	// No write may have happened.
	loaded, _ := e.store.Load(s.ID)
	if loaded.CurrentAgentIndex != 0 || len(loaded.Errors) != 0 || loaded.Status != session.StatusRunning {
		t.Error("expired session was mutated")
	}

	// Status still answers, reporting the expiry.
	status, err := e.orch.Status(s.ID)
	if err != nil {
		t.Fatalf("Status() on expired session error = %v", err)
	}
	if !status.Expired {
		t.Error("Status().Expired = false, want true")
	}
}

func TestOrchestrator_DynamicExpansion(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	// While the structure is not ready, steps past the boundary keep
	// routing statically and nothing errors.
	e.completeThrough(t, s.ID, 6)
	res, err := e.orch.Next(s.ID)
	if err != nil {
		t.Fatalf("Next() at boundary error = %v", err)
	}
	if res.Step.Agent.Key != "coherence-editor" {
		t.Errorf("fallback step = %q, want coherence-editor", res.Step.Agent.Key)
	}

	// Structure locks with three sections: expansion freezes 6+3+3.
	e.expander.err = nil
	e.expander.agents = generated(3)

	res, err = e.orch.Next(s.ID)
	if err != nil {
		t.Fatalf("Next() after lock error = %v", err)
	}
	if res.Step.Agent.Key != e.expander.agents[0].Key {
		t.Errorf("step = %q, want first generated", res.Step.Agent.Key)
	}
	if res.Step.Kind != "generated" {
		t.Errorf("Kind = %q, want generated", res.Step.Kind)
	}
	if res.Step.Progress.Total != 12 {
		t.Errorf("Total = %d, want 12", res.Step.Progress.Total)
	}

	loaded, _ := e.store.Load(s.ID)
	if loaded.DynamicTotalAgents == nil || *loaded.DynamicTotalAgents != 12 {
		t.Fatalf("DynamicTotalAgents = %v, want 12", loaded.DynamicTotalAgents)
	}
	if loaded.TotalAgents != 12 {
		t.Errorf("TotalAgents = %d, want 12", loaded.TotalAgents)
	}
	if len(loaded.DynamicAgents) != 3 {
		t.Errorf("DynamicAgents = %d entries, want 3", len(loaded.DynamicAgents))
	}
}

func TestOrchestrator_ExpansionFrozen(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")
	e.completeThrough(t, s.ID, 6)

	e.expander.err = nil
	e.expander.agents = generated(3)
	if _, err := e.orch.Next(s.ID); err != nil {
		t.Fatal(err)
	}
	callsAfterExpansion := e.expander.calls

	// The structure changes afterwards; the frozen session must not see it.
	e.expander.agents = generated(5)
	res, err := e.orch.Next(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Step.Progress.Total != 12 {
		t.Errorf("Total = %d after structure edit, want frozen 12", res.Step.Progress.Total)
	}
	if e.expander.calls != callsAfterExpansion {
		t.Errorf("expander called %d more times after freeze",
			e.expander.calls-callsAfterExpansion)
	}
}

func TestOrchestrator_CompleteThroughDynamicToEnd(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")
	e.completeThrough(t, s.ID, 6)

	e.expander.err = nil
	e.expander.agents = generated(2)

	// Generated steps, then the post-dynamic static tail.
	for _, key := range []string{
		e.expander.agents[0].Key, e.expander.agents[1].Key,
		"coherence-editor", "citation-auditor", "final-compiler",
	} {
		res, err := e.orch.Complete(s.ID, key, nil)
		if err != nil {
			t.Fatalf("Complete(%s) error = %v", key, err)
		}
		if key == "final-compiler" && !res.Done {
			t.Error("final completion did not report done")
		}
	}

	loaded, _ := e.store.Load(s.ID)
	if loaded.Status != session.StatusCompleted {
		t.Errorf("Status = %q, want completed", loaded.Status)
	}

	// Next now yields the terminal summary.
	res, err := e.orch.Next(s.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Done || res.Summary == nil {
		t.Fatal("Next() on completed session should return a summary")
	}
	if res.Summary.Completed != 11 || res.Summary.Total != 11 {
		t.Errorf("Summary = %d/%d, want 11/11", res.Summary.Completed, res.Summary.Total)
	}
}

func TestOrchestrator_Fail(t *testing.T) {
	e := newTestEnv(t)

	t.Run("critical step fails the session", func(t *testing.T) {
		s, _ := e.orch.Init("critical topic", "standard")

		res, err := e.orch.Fail(s.ID, "query-analyzer", "executor crashed")
		if err != nil {
			t.Fatalf("Fail() error = %v", err)
		}
		if !res.Critical || res.Status != session.StatusFailed {
			t.Errorf("FailResult = %+v, want critical failure", res)
		}

		loaded, _ := e.store.Load(s.ID)
		if loaded.Status != session.StatusFailed {
			t.Errorf("Status = %q, want failed", loaded.Status)
		}
		if loaded.CurrentAgentIndex != 0 {
			t.Error("Fail must not advance the cursor")
		}
	})

	t.Run("non-critical step keeps the session running", func(t *testing.T) {
		s, _ := e.orch.Init("resilient topic", "standard")
		e.completeThrough(t, s.ID, 3)

		// source-curator is not critical.
		res, err := e.orch.Fail(s.ID, "source-curator", "flaky provider")
		if err != nil {
			t.Fatalf("Fail() error = %v", err)
		}
		if res.Critical || res.Status != session.StatusRunning {
			t.Errorf("FailResult = %+v, want non-critical running", res)
		}

		loaded, _ := e.store.Load(s.ID)
		if loaded.CurrentAgentIndex != 3 {
			t.Error("Fail must not advance the cursor")
		}
		if len(loaded.Errors) != 1 {
			t.Errorf("Errors = %d, want 1", len(loaded.Errors))
		}

		// The step can be retried and completed afterwards.
		if _, err := e.orch.Complete(s.ID, "source-curator", nil); err != nil {
			t.Errorf("Complete() after non-critical failure error = %v", err)
		}
	})

	t.Run("wrong key is a mismatch", func(t *testing.T) {
		s, _ := e.orch.Init("mismatched topic", "standard")

		_, err := e.orch.Fail(s.ID, "final-compiler", "nope")
		var mismatch *errors.MismatchError
		if !errors.As(err, &mismatch) {
			t.Errorf("error = %T, want *MismatchError", err)
		}
	})
}

func TestOrchestrator_PauseResume(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")
	e.completeThrough(t, s.ID, 2)

	paused, err := e.orch.Pause(s.ID)
	if err != nil {
		t.Fatalf("Pause() error = %v", err)
	}
	if paused.Status != session.StatusPaused {
		t.Errorf("Status = %q, want paused", paused.Status)
	}
	if _, err := e.orch.Pause(s.ID); err == nil {
		t.Error("Pause() on a paused session should fail")
	}

	res, err := e.orch.Resume(s.ID)
	if err != nil {
		t.Fatalf("Resume() error = %v", err)
	}
	if res.Step == nil || res.Step.Agent.Key != "web-researcher" {
		t.Errorf("Resume() step = %+v, want web-researcher", res.Step)
	}

	loaded, _ := e.store.Load(s.ID)
	if loaded.Status != session.StatusRunning {
		t.Errorf("Status = %q after Resume, want running", loaded.Status)
	}
	if loaded.CurrentAgentIndex != 2 {
		t.Error("Resume must not advance the cursor")
	}
}

func TestOrchestrator_Abort(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")

	aborted, err := e.orch.Abort(s.ID)
	if err != nil {
		t.Fatalf("Abort() error = %v", err)
	}
	if aborted.Status != session.StatusFailed {
		t.Errorf("Status = %q, want failed", aborted.Status)
	}
	if len(aborted.Errors) != 1 || aborted.Errors[0].Message != "aborted" {
		t.Errorf("Errors = %+v, want the abort record", aborted.Errors)
	}

	if _, err := e.orch.Abort(s.ID); !errors.Is(err, errors.ErrSessionTerminal) {
		t.Errorf("second Abort error = %v, want ErrSessionTerminal", err)
	}
}

func TestOrchestrator_CheckpointFailureDoesNotFailStep(t *testing.T) {
	e := newTestEnv(t)
	e.checkpoints.err = errors.New("disk full")
	s, _ := e.orch.Init("topic X", "standard")

	res, err := e.orch.Complete(s.ID, "query-analyzer", nil)
	if err != nil {
		t.Fatalf("Complete() error = %v, checkpoint failures must not surface", err)
	}
	if res.CheckpointID != "" {
		t.Error("CheckpointID set despite checkpoint failure")
	}
	if res.NextIndex != 1 {
		t.Error("step did not advance")
	}
}

func TestOrchestrator_Status(t *testing.T) {
	e := newTestEnv(t)
	s, _ := e.orch.Init("topic X", "standard")
	e.completeThrough(t, s.ID, 3)

	status, err := e.orch.Status(s.ID)
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if status.Completed != 3 || status.CurrentIndex != 3 {
		t.Errorf("Status = %+v, want 3 completed", status)
	}
	if status.Phase != 2 {
		t.Errorf("Phase = %d, want 2 after three completions", status.Phase)
	}
	if status.TotalAgents != 9 {
		t.Errorf("TotalAgents = %d, want 9", status.TotalAgents)
	}
	if status.Expired {
		t.Error("fresh session reported expired")
	}
}
