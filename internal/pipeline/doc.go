// Package pipeline defines the static step catalog and the routing rules
// that map a session's cursor onto concrete pipeline steps.
//
// # Catalog
//
// A [Catalog] is an ordered list of [Agent] definitions grouped into
// [Phase] entries. Exactly one phase is dynamic: its steps do not exist
// in the catalog and are synthesized at runtime by the [Expander] from a
// locked structure artifact. Catalogs are validated at construction and
// the built-in deep-research catalog is validated at package init, so a
// corrupt catalog fails fast rather than surfacing mid-session.
//
// # Routing
//
// [ResolveStep] is the single routing function used by every orchestrator
// operation. Given the catalog, the session's generated steps (nil before
// expansion), and a cursor index, it returns a [StepRef] tagged static,
// generated, or terminal. Keeping this in one place means "next",
// "complete", and "resume" can never disagree about which step an index
// refers to.
//
// # Expansion
//
// [Expander.Expand] reads a locked structure by slug and synthesizes one
// compose step per section. Absent or unlocked structures yield typed
// errors the orchestrator treats as "not yet"; malformed sections are
// validation errors naming the offending index and field.
package pipeline
