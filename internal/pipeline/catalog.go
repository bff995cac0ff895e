package pipeline

import (
	"fmt"

	"github.com/batonworks/baton/internal/errors"
)

// -----------------------------------------------------------------------------
// Catalog
// -----------------------------------------------------------------------------

// Catalog is a validated, ordered set of static agent definitions grouped
// into phases. Exactly one phase is dynamic and contributes no static
// agents; its steps are generated per session by the Expander.
//
// Catalogs are immutable after construction. Use NewCatalog (or the
// package-level Default catalog) rather than building the struct directly,
// since the routing functions rely on the derived indices.
type Catalog struct {
	// Name identifies the catalog, e.g. "deep-research/v1".
	Name string

	// Phases lists the pipeline stages in order.
	Phases []Phase

	agents       []Agent
	byKey        map[string]int
	dynamicStart int
	dynamicPhase int
}

// NewCatalog builds a catalog from phase and agent definitions, validating
// that the two are mutually consistent: every phase key resolves to a real
// agent, agents appear in phase order, keys are unique, phase sizes sum to
// the agent count, and exactly one phase is dynamic.
func NewCatalog(name string, phases []Phase, agents []Agent) (*Catalog, error) {
	if name == "" {
		return nil, errors.NewValidationError("catalog name is required").WithField("name")
	}
	if len(phases) == 0 {
		return nil, errors.NewValidationError("catalog has no phases").WithField("phases")
	}

	byKey := make(map[string]int, len(agents))
	for i, a := range agents {
		if a.Key == "" {
			return nil, errors.NewValidationError(fmt.Sprintf("agent %d has no key", i)).
				WithField(fmt.Sprintf("agents[%d].key", i))
		}
		if _, dup := byKey[a.Key]; dup {
			return nil, errors.NewValidationError(fmt.Sprintf("duplicate agent key '%s'", a.Key)).
				WithField(fmt.Sprintf("agents[%d].key", i)).WithValue(a.Key)
		}
		byKey[a.Key] = i
	}

	dynamicPhase := 0
	dynamicStart := -1
	cursor := 0
	lastID := 0
	for pi, p := range phases {
		if p.ID <= lastID {
			return nil, errors.NewValidationError(
				fmt.Sprintf("phase ids must be strictly increasing, phase %d follows %d", p.ID, lastID)).
				WithField(fmt.Sprintf("phases[%d].id", pi)).WithValue(p.ID)
		}
		lastID = p.ID

		if p.Dynamic {
			if dynamicStart >= 0 {
				return nil, errors.NewValidationError("catalog has more than one dynamic phase").
					WithField(fmt.Sprintf("phases[%d]", pi))
			}
			if len(p.AgentKeys) > 0 {
				return nil, errors.NewValidationError(
					fmt.Sprintf("dynamic phase %d must not list static agents", p.ID)).
					WithField(fmt.Sprintf("phases[%d].agents", pi))
			}
			dynamicPhase = p.ID
			dynamicStart = cursor
			continue
		}

		for _, key := range p.AgentKeys {
			idx, ok := byKey[key]
			if !ok {
				return nil, errors.NewValidationError(
					fmt.Sprintf("phase %d references unknown agent '%s'", p.ID, key)).
					WithField(fmt.Sprintf("phases[%d].agents", pi)).WithValue(key)
			}
			if idx != cursor {
				return nil, errors.NewValidationError(
					fmt.Sprintf("agent '%s' is out of order: phase %d expects it at position %d", key, p.ID, cursor)).
					WithField(fmt.Sprintf("agents[%d]", idx)).WithValue(key)
			}
			if agents[idx].Phase != p.ID {
				return nil, errors.NewValidationError(
					fmt.Sprintf("agent '%s' declares phase %d but is listed under phase %d", key, agents[idx].Phase, p.ID)).
					WithField(fmt.Sprintf("agents[%d].phase", idx)).WithValue(agents[idx].Phase)
			}
			cursor++
		}
	}

	if dynamicStart < 0 {
		return nil, errors.NewValidationError("catalog has no dynamic phase").WithField("phases")
	}
	if cursor != len(agents) {
		return nil, errors.NewValidationError(
			fmt.Sprintf("phase sizes sum to %d but catalog defines %d agents", cursor, len(agents))).
			WithField("agents").WithValue(len(agents))
	}

	return &Catalog{
		Name:         name,
		Phases:       phases,
		agents:       agents,
		byKey:        byKey,
		dynamicStart: dynamicStart,
		dynamicPhase: dynamicPhase,
	}, nil
}

// mustCatalog panics on validation failure. Reserved for compiled-in catalogs,
// where a bad definition is a programming error.
func mustCatalog(name string, phases []Phase, agents []Agent) *Catalog {
	c, err := NewCatalog(name, phases, agents)
	if err != nil {
		panic(fmt.Sprintf("pipeline: invalid built-in catalog %q: %v", name, err))
	}
	return c
}

// StaticTotal returns the number of static agents in the catalog.
func (c *Catalog) StaticTotal() int {
	return len(c.agents)
}

// StaticAgent returns the static agent at position i in pipeline order.
func (c *Catalog) StaticAgent(i int) (*Agent, bool) {
	if i < 0 || i >= len(c.agents) {
		return nil, false
	}
	return &c.agents[i], true
}

// AgentByKey returns the static agent with the given key.
func (c *Catalog) AgentByKey(key string) (*Agent, bool) {
	i, ok := c.byKey[key]
	if !ok {
		return nil, false
	}
	return &c.agents[i], true
}

// DynamicStart returns the position in the effective step sequence where
// the dynamic phase begins. Static agents at or past this position belong
// to post-dynamic phases and shift right once expansion happens.
func (c *Catalog) DynamicStart() int {
	return c.dynamicStart
}

// DynamicPhaseID returns the phase number of the dynamic phase.
func (c *Catalog) DynamicPhaseID() int {
	return c.dynamicPhase
}

// PhaseByID returns the phase with the given number.
func (c *Catalog) PhaseByID(id int) (*Phase, bool) {
	for i := range c.Phases {
		if c.Phases[i].ID == id {
			return &c.Phases[i], true
		}
	}
	return nil, false
}

// LastPhaseID returns the highest phase number in the catalog.
func (c *Catalog) LastPhaseID() int {
	if len(c.Phases) == 0 {
		return 0
	}
	return c.Phases[len(c.Phases)-1].ID
}

// -----------------------------------------------------------------------------
// Built-in catalog
// -----------------------------------------------------------------------------

// Default is the deep-research pipeline: discovery and research feed an
// outline, the composition phase expands into one compose step per locked
// outline section, and delivery edits, audits, and compiles the result.
var Default = mustCatalog("deep-research/v1",
	[]Phase{
		{ID: 1, Name: "Discovery", Description: "Understand the query and plan the research", AgentKeys: []string{"query-analyzer", "research-planner"}},
		{ID: 2, Name: "Research", Description: "Gather and curate sources", AgentKeys: []string{"web-researcher", "source-curator"}},
		{ID: 3, Name: "Structure", Description: "Design and review the report outline", AgentKeys: []string{"outline-architect", "outline-reviewer"}},
		{ID: 4, Name: "Composition", Description: "Draft each outline section", AgentKeys: nil, Dynamic: true},
		{ID: 5, Name: "Delivery", Description: "Edit, audit, and compile the final report", AgentKeys: []string{"coherence-editor", "citation-auditor", "final-compiler"}},
	},
	[]Agent{
		{Key: "query-analyzer", Name: "Query Analyzer", Phase: 1, TimeoutMinutes: 10, Critical: true, Outputs: []string{"analysis"}},
		{Key: "research-planner", Name: "Research Planner", Phase: 1, DependsOn: []string{"query-analyzer"}, TimeoutMinutes: 10, Critical: true, Outputs: []string{"plan"}},
		{Key: "web-researcher", Name: "Web Researcher", Phase: 2, DependsOn: []string{"research-planner"}, TimeoutMinutes: 30, Critical: true, Outputs: []string{"findings"}},
		{Key: "source-curator", Name: "Source Curator", Phase: 2, DependsOn: []string{"web-researcher"}, TimeoutMinutes: 15, Outputs: []string{"sources"}},
		{Key: "outline-architect", Name: "Outline Architect", Phase: 3, DependsOn: []string{"source-curator"}, TimeoutMinutes: 15, Critical: true, Outputs: []string{"outline"}},
		{Key: "outline-reviewer", Name: "Outline Reviewer", Phase: 3, DependsOn: []string{"outline-architect"}, TimeoutMinutes: 10, Outputs: []string{"review"}},
		{Key: "coherence-editor", Name: "Coherence Editor", Phase: 5, TimeoutMinutes: 20, Outputs: []string{"edits"}},
		{Key: "citation-auditor", Name: "Citation Auditor", Phase: 5, DependsOn: []string{"coherence-editor"}, TimeoutMinutes: 15, Outputs: []string{"citations"}},
		{Key: "final-compiler", Name: "Final Compiler", Phase: 5, DependsOn: []string{"citation-auditor"}, TimeoutMinutes: 20, Critical: true, Outputs: []string{"report"}},
	},
)
