// Package memory provides the episodic memory collaborator: a best-effort
// store of past pipeline episodes that can be injected into prompts.
//
// Memory is an enrichment, never a dependency: every operation is
// designed so a failure degrades to "no memory" rather than aborting the
// step that asked for it. Embedding- or search-backed providers are
// external; this package ships a file-backed recency store and a no-op.
package memory

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/batonworks/baton/internal/logging"
)

// Episode is one remembered unit of past pipeline work.
type Episode struct {
	// SessionID is the session the episode came from.
	SessionID string `json:"session_id"`

	// Slug groups episodes by query topic.
	Slug string `json:"slug"`

	// AgentKey is the step that produced the episode.
	AgentKey string `json:"agent_key"`

	// Summary is a short description of what happened.
	Summary string `json:"summary"`

	// Timestamp is when the episode was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// InjectOptions control how episodes are selected for injection.
type InjectOptions struct {
	// Slug restricts episodes to a query topic. Empty matches all.
	Slug string

	// Max caps how many episodes are injected. 0 uses the store default.
	Max int
}

// FileName is the episode log file under the memory directory.
const FileName = "episodes.json"

// Dir returns the memory directory under a base directory.
func Dir(base string) string {
	return filepath.Join(base, "memory")
}

// FileMemory is a file-backed recency store of episodes.
//
// The episode log is a single JSON array rewritten atomically on each
// record; the newest maxEpisodes entries per slug are retained.
type FileMemory struct {
	path        string
	maxEpisodes int
	log         *logging.Logger
	mu          sync.Mutex
}

// NewFileMemory creates a file-backed memory under the given base
// directory, retaining at most maxEpisodes entries per slug.
func NewFileMemory(base string, maxEpisodes int, log *logging.Logger) *FileMemory {
	if log == nil {
		log = logging.NopLogger()
	}
	if maxEpisodes < 1 {
		maxEpisodes = 5
	}
	return &FileMemory{
		path:        filepath.Join(Dir(base), FileName),
		maxEpisodes: maxEpisodes,
		log:         log.WithComponent("memory"),
	}
}

// Record appends an episode, trimming older episodes for the same slug
// past the retention cap.
func (m *FileMemory) Record(ep Episode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now()
	}

	episodes, err := m.load()
	if err != nil {
		return err
	}
	episodes = append(episodes, ep)
	episodes = trimPerSlug(episodes, m.maxEpisodes)
	return m.write(episodes)
}

// Inject prepends recent episodes to the prompt and reports whether any
// were used. An empty memory returns the prompt unchanged.
func (m *FileMemory) Inject(prompt string, opts InjectOptions) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	episodes, err := m.load()
	if err != nil {
		return prompt, false, err
	}

	max := opts.Max
	if max <= 0 {
		max = m.maxEpisodes
	}

	var selected []Episode
	for _, ep := range episodes {
		if opts.Slug != "" && ep.Slug != opts.Slug {
			continue
		}
		selected = append(selected, ep)
	}
	if len(selected) == 0 {
		return prompt, false, nil
	}

	// Newest first, capped.
	sort.Slice(selected, func(i, j int) bool {
		return selected[i].Timestamp.After(selected[j].Timestamp)
	})
	if len(selected) > max {
		selected = selected[:max]
	}

	var b strings.Builder
	b.WriteString("Relevant past episodes:\n")
	for _, ep := range selected {
		fmt.Fprintf(&b, "- [%s] %s\n", ep.AgentKey, ep.Summary)
	}
	b.WriteString("\n")
	b.WriteString(prompt)

	return b.String(), true, nil
}

// load reads the episode log. Absence is an empty log.
func (m *FileMemory) load() ([]Episode, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read episode log: %w", err)
	}

	var episodes []Episode
	if err := json.Unmarshal(data, &episodes); err != nil {
		// A damaged log should not poison future runs. Start over.
		m.log.Warn("episode log does not parse, resetting", "error", err)
		return nil, nil
	}
	return episodes, nil
}

// write rewrites the episode log atomically.
func (m *FileMemory) write(episodes []Episode) error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return fmt.Errorf("failed to create memory directory: %w", err)
	}

	data, err := json.MarshalIndent(episodes, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal episode log: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(m.path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write episode log: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close episode log: %w", err)
	}
	if err := os.Rename(tmpPath, m.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename episode log: %w", err)
	}
	return nil
}

// trimPerSlug keeps the newest max episodes for each slug, preserving
// overall order.
func trimPerSlug(episodes []Episode, max int) []Episode {
	counts := make(map[string]int)
	// Count newest-first so the oldest overflow entries are dropped.
	keep := make([]bool, len(episodes))
	for i := len(episodes) - 1; i >= 0; i-- {
		slug := episodes[i].Slug
		if counts[slug] < max {
			keep[i] = true
			counts[slug]++
		}
	}

	out := episodes[:0]
	for i, ep := range episodes {
		if keep[i] {
			out = append(out, ep)
		}
	}
	return out
}

// Nop is an episodic memory that remembers nothing. Used when memory is
// disabled in configuration.
type Nop struct{}

// Record discards the episode.
func (Nop) Record(Episode) error { return nil }

// Inject returns the prompt unchanged.
func (Nop) Inject(prompt string, _ InjectOptions) (string, bool, error) {
	return prompt, false, nil
}
