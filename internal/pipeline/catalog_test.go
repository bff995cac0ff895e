package pipeline

import (
	"strings"
	"testing"
)

// testPhases returns a small valid phase layout: two static agents, a
// dynamic phase, then one static agent.
func testPhases() []Phase {
	return []Phase{
		{ID: 1, Name: "Pre", AgentKeys: []string{"first", "second"}},
		{ID: 2, Name: "Middle", Dynamic: true},
		{ID: 3, Name: "Post", AgentKeys: []string{"last"}},
	}
}

func testAgents() []Agent {
	return []Agent{
		{Key: "first", Name: "First", Phase: 1, TimeoutMinutes: 5},
		{Key: "second", Name: "Second", Phase: 1, TimeoutMinutes: 5},
		{Key: "last", Name: "Last", Phase: 3, TimeoutMinutes: 5},
	}
}

func TestNewCatalog(t *testing.T) {
	cat, err := NewCatalog("test/v1", testPhases(), testAgents())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	if cat.StaticTotal() != 3 {
		t.Errorf("StaticTotal() = %d, want 3", cat.StaticTotal())
	}
	if cat.DynamicStart() != 2 {
		t.Errorf("DynamicStart() = %d, want 2", cat.DynamicStart())
	}
	if cat.DynamicPhaseID() != 2 {
		t.Errorf("DynamicPhaseID() = %d, want 2", cat.DynamicPhaseID())
	}
	if cat.LastPhaseID() != 3 {
		t.Errorf("LastPhaseID() = %d, want 3", cat.LastPhaseID())
	}
}

func TestNewCatalog_Validation(t *testing.T) {
	tests := []struct {
		name    string
		catName string
		phases  []Phase
		agents  []Agent
		wantErr string
	}{
		{
			name:    "empty name",
			catName: "",
			phases:  testPhases(),
			agents:  testAgents(),
			wantErr: "name is required",
		},
		{
			name:    "no phases",
			catName: "test/v1",
			phases:  nil,
			agents:  nil,
			wantErr: "no phases",
		},
		{
			name:    "duplicate agent key",
			catName: "test/v1",
			phases:  testPhases(),
			agents: []Agent{
				{Key: "first", Phase: 1},
				{Key: "first", Phase: 1},
				{Key: "last", Phase: 3},
			},
			wantErr: "duplicate agent key",
		},
		{
			name:    "unknown key in phase",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, AgentKeys: []string{"first", "ghost"}},
				{ID: 2, Dynamic: true},
			},
			agents:  []Agent{{Key: "first", Phase: 1}},
			wantErr: "unknown agent",
		},
		{
			name:    "agent out of order",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, AgentKeys: []string{"second", "first"}},
				{ID: 2, Dynamic: true},
			},
			agents: []Agent{
				{Key: "first", Phase: 1},
				{Key: "second", Phase: 1},
			},
			wantErr: "out of order",
		},
		{
			name:    "agent declares wrong phase",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, AgentKeys: []string{"first"}},
				{ID: 2, Dynamic: true},
			},
			agents:  []Agent{{Key: "first", Phase: 7}},
			wantErr: "declares phase 7",
		},
		{
			name:    "two dynamic phases",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, Dynamic: true},
				{ID: 2, Dynamic: true},
			},
			agents:  nil,
			wantErr: "more than one dynamic phase",
		},
		{
			name:    "no dynamic phase",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, AgentKeys: []string{"first"}},
			},
			agents:  []Agent{{Key: "first", Phase: 1}},
			wantErr: "no dynamic phase",
		},
		{
			name:    "dynamic phase lists agents",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, AgentKeys: []string{"first"}},
				{ID: 2, Dynamic: true, AgentKeys: []string{"rogue"}},
			},
			agents:  []Agent{{Key: "first", Phase: 1}},
			wantErr: "must not list static agents",
		},
		{
			name:    "unreferenced agent",
			catName: "test/v1",
			phases: []Phase{
				{ID: 1, AgentKeys: []string{"first"}},
				{ID: 2, Dynamic: true},
			},
			agents: []Agent{
				{Key: "first", Phase: 1},
				{Key: "orphan", Phase: 1},
			},
			wantErr: "phase sizes sum",
		},
		{
			name:    "non-increasing phase ids",
			catName: "test/v1",
			phases: []Phase{
				{ID: 2, AgentKeys: []string{"first"}},
				{ID: 1, Dynamic: true},
			},
			agents:  []Agent{{Key: "first", Phase: 2}},
			wantErr: "strictly increasing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.catName, tt.phases, tt.agents)
			if err == nil {
				t.Fatal("NewCatalog() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("NewCatalog() error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestCatalog_StaticAgent(t *testing.T) {
	cat, err := NewCatalog("test/v1", testPhases(), testAgents())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	a, ok := cat.StaticAgent(1)
	if !ok {
		t.Fatal("StaticAgent(1) not found")
	}
	if a.Key != "second" {
		t.Errorf("StaticAgent(1).Key = %q, want %q", a.Key, "second")
	}

	if _, ok := cat.StaticAgent(-1); ok {
		t.Error("StaticAgent(-1) should not be found")
	}
	if _, ok := cat.StaticAgent(3); ok {
		t.Error("StaticAgent(3) should not be found")
	}
}

func TestCatalog_AgentByKey(t *testing.T) {
	cat, err := NewCatalog("test/v1", testPhases(), testAgents())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	a, ok := cat.AgentByKey("last")
	if !ok {
		t.Fatal("AgentByKey(last) not found")
	}
	if a.Phase != 3 {
		t.Errorf("AgentByKey(last).Phase = %d, want 3", a.Phase)
	}

	if _, ok := cat.AgentByKey("missing"); ok {
		t.Error("AgentByKey(missing) should not be found")
	}
}

func TestCatalog_PhaseByID(t *testing.T) {
	cat, err := NewCatalog("test/v1", testPhases(), testAgents())
	if err != nil {
		t.Fatalf("NewCatalog() error = %v", err)
	}

	p, ok := cat.PhaseByID(2)
	if !ok {
		t.Fatal("PhaseByID(2) not found")
	}
	if !p.Dynamic {
		t.Error("PhaseByID(2) should be dynamic")
	}

	if _, ok := cat.PhaseByID(99); ok {
		t.Error("PhaseByID(99) should not be found")
	}
}

func TestDefaultCatalog(t *testing.T) {
	if Default.Name != "deep-research/v1" {
		t.Errorf("Default.Name = %q, want %q", Default.Name, "deep-research/v1")
	}
	if Default.StaticTotal() != 9 {
		t.Errorf("Default.StaticTotal() = %d, want 9", Default.StaticTotal())
	}
	if Default.DynamicStart() != 6 {
		t.Errorf("Default.DynamicStart() = %d, want 6", Default.DynamicStart())
	}
	if Default.DynamicPhaseID() != 4 {
		t.Errorf("Default.DynamicPhaseID() = %d, want 4", Default.DynamicPhaseID())
	}
	if Default.LastPhaseID() != 5 {
		t.Errorf("Default.LastPhaseID() = %d, want 5", Default.LastPhaseID())
	}

	// Spot-check pipeline order around the dynamic boundary.
	first, _ := Default.StaticAgent(0)
	if first.Key != "query-analyzer" {
		t.Errorf("first static agent = %q, want %q", first.Key, "query-analyzer")
	}
	boundary, _ := Default.StaticAgent(6)
	if boundary.Key != "coherence-editor" {
		t.Errorf("static agent 6 = %q, want %q", boundary.Key, "coherence-editor")
	}
	last, _ := Default.StaticAgent(8)
	if last.Key != "final-compiler" {
		t.Errorf("last static agent = %q, want %q", last.Key, "final-compiler")
	}

	// Every static agent must resolve by key and carry a timeout.
	for i := 0; i < Default.StaticTotal(); i++ {
		a, ok := Default.StaticAgent(i)
		if !ok {
			t.Fatalf("StaticAgent(%d) not found", i)
		}
		if byKey, ok := Default.AgentByKey(a.Key); !ok || byKey != a {
			t.Errorf("AgentByKey(%q) did not round-trip", a.Key)
		}
		if a.TimeoutMinutes <= 0 {
			t.Errorf("agent %q has no timeout", a.Key)
		}
	}
}
