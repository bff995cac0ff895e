// Package structure reads the locked outline artifacts that drive dynamic
// pipeline expansion.
//
// An outline-producing step writes one JSON artifact per session slug under
// the structures directory. Once the artifact is marked locked, the
// pipeline expander may turn its sections into compose steps. This package
// owns the artifact schema and a caching [Loader]; it knows nothing about
// sessions or catalogs.
package structure

import (
	"path/filepath"
	"time"
)

// FileExt is the artifact file extension.
const FileExt = ".json"

// Dir returns the structures directory under a base directory.
func Dir(base string) string {
	return filepath.Join(base, "structures")
}

// Section is one planned section of the final document.
type Section struct {
	// Title is the section heading. Required.
	Title string `json:"title"`

	// Focus states what the section must cover. Required.
	Focus string `json:"focus"`

	// Notes carries optional guidance for the composing agent.
	Notes string `json:"notes,omitempty"`
}

// Structure is the locked-outline artifact keyed by session slug.
//
// The artifact is written externally; this package only reads it. The
// Locked flag is the gate: an unlocked structure exists but must not be
// expanded, since its sections may still change.
type Structure struct {
	// Slug identifies the artifact and matches its filename.
	Slug string `json:"slug"`

	// Title is the working title of the document.
	Title string `json:"title"`

	// Locked marks the outline as final and safe to expand.
	Locked bool `json:"locked"`

	// LockedAt records when the outline was locked.
	LockedAt *time.Time `json:"locked_at,omitempty"`

	// Sections lists the planned sections in document order.
	Sections []Section `json:"sections"`
}

// SectionCount returns the number of planned sections.
func (s *Structure) SectionCount() int {
	return len(s.Sections)
}
