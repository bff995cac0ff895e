// Package prompt assembles the instruction text handed to the external
// executor for one pipeline step.
//
// The content of instructions is deliberately minimal: baton coordinates
// steps, it does not own their prose. The builder renders a small
// template over the step definition and session context so every step
// gets a consistent, recognizable framing.
package prompt

import (
	"strings"
	"text/template"

	"github.com/batonworks/baton/internal/pipeline"
)

// Context carries the session state a prompt is built against.
type Context struct {
	// SessionID identifies the running session.
	SessionID string

	// Query is the user request driving the pipeline.
	Query string

	// Slug is the session's topic slug.
	Slug string

	// Phase is the phase the step belongs to.
	Phase int

	// PhaseName is the display name of that phase.
	PhaseName string

	// CompletedAgents lists the keys of already-completed steps.
	CompletedAgents []string

	// RecentOutputs digests the outputs of the step's dependencies,
	// keyed by agent key. Values are short plain-text summaries.
	RecentOutputs map[string]string
}

// stepTemplate frames one pipeline step for the external executor.
var stepTemplate = template.Must(template.New("step").
	Funcs(template.FuncMap{"join": strings.Join}).
	Parse(
	`You are the {{.Agent.Name}} step of a research pipeline.

Topic: {{.Ctx.Query}}
Phase {{.Ctx.Phase}}{{if .Ctx.PhaseName}} ({{.Ctx.PhaseName}}){{end}}, step {{.Agent.Key}}.
{{- if .Ctx.CompletedAgents}}

Completed so far: {{join .Ctx.CompletedAgents ", "}}.
{{- end}}
{{- if .Deps}}

Earlier output you depend on:
{{- range $key, $digest := .Deps}}
- {{$key}}: {{$digest}}
{{- end}}
{{- end}}
{{- if .Agent.Outputs}}

Produce: {{join .Agent.Outputs ", "}}.
{{- end}}
`))

// Builder renders step instructions from a template.
type Builder struct{}

// NewBuilder creates a template-backed prompt builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build renders the instruction text for one step.
func (b *Builder) Build(agent *pipeline.Agent, ctx Context) (string, error) {
	// Only digests for declared dependencies are surfaced; the rest of
	// the output map is noise for this step.
	deps := make(map[string]string)
	for _, key := range agent.DependsOn {
		if digest, ok := ctx.RecentOutputs[key]; ok {
			deps[key] = digest
		}
	}

	var sb strings.Builder
	err := stepTemplate.Execute(&sb, struct {
		Agent *pipeline.Agent
		Ctx   Context
		Deps  map[string]string
	}{agent, ctx, deps})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}
