package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/logging"
)

// State classifies a checkpoint record.
type State string

const (
	// StateValid means the snapshot was captured and can be rolled back to.
	StateValid State = "valid"

	// StateCorrupted means the record or its snapshot is damaged.
	// Corrupted checkpoints are kept for inspection but refuse rollback.
	StateCorrupted State = "corrupted"

	// StatePartial means no live context existed when the checkpoint was
	// taken, so only progress metadata was captured.
	StatePartial State = "partial"
)

// Checkpoint is one point-in-time record of session progress plus a
// snapshot of the session's external context blob.
type Checkpoint struct {
	// ID is a ULID, so lexicographic order is creation order.
	ID string `json:"id"`

	// SessionID is the session this checkpoint belongs to.
	SessionID string `json:"session_id"`

	// Phase is the pipeline phase at checkpoint time.
	Phase int `json:"phase"`

	// AgentKey is the step whose completion produced this checkpoint.
	AgentKey string `json:"agent_key"`

	// CreatedAt is when the checkpoint was taken.
	CreatedAt time.Time `json:"created_at"`

	// SnapshotPath is where the context snapshot was copied.
	// Empty for partial checkpoints.
	SnapshotPath string `json:"snapshot_path,omitempty"`

	// CompletedAgents is the session's completed list at checkpoint time.
	CompletedAgents []string `json:"completed_agents"`

	// Quality is the scored quality of the completing step's output,
	// in [0, 1].
	Quality float64 `json:"quality"`

	// State classifies the record.
	State State `json:"state"`
}

// LogFileName is the per-session checkpoint log file.
const LogFileName = "checkpoints.json"

// Dir returns the checkpoints directory under a base directory.
func Dir(base string) string {
	return filepath.Join(base, "checkpoints")
}

// ContextDir returns the live-context directory under a base directory.
func ContextDir(base string) string {
	return filepath.Join(base, "context")
}

// ContextPath returns the live context blob path for a session. The blob
// is owned by the external executor; this package only copies it.
func ContextPath(base, sessionID string) string {
	return filepath.Join(ContextDir(base), sessionID, "context.json")
}

// Manager snapshots external session context after completed steps and
// restores it on rollback.
//
// Each session has its own directory holding a JSON-array log (rewritten
// whole on every append) and one snapshot file per checkpoint.
// Checkpoints are never deleted automatically.
type Manager struct {
	base string
	log  *logging.Logger
	mu   sync.Mutex
}

// NewManager creates a checkpoint manager rooted at the given base
// directory.
func NewManager(base string, log *logging.Logger) *Manager {
	if log == nil {
		log = logging.NopLogger()
	}
	return &Manager{
		base: base,
		log:  log.WithComponent("checkpoint"),
	}
}

// sessionDir returns the checkpoint directory for one session.
func (m *Manager) sessionDir(sessionID string) string {
	return filepath.Join(Dir(m.base), sessionID)
}

// logPath returns the checkpoint log path for one session.
func (m *Manager) logPath(sessionID string) string {
	return filepath.Join(m.sessionDir(sessionID), LogFileName)
}

// Create records a checkpoint for the given completed step.
//
// The session's live context blob is copied into a snapshot file; if no
// blob exists yet the checkpoint is recorded as partial rather than
// failing, since early pipeline steps may not have produced context.
func (m *Manager) Create(sessionID string, phase int, agentKey string, completed []string, quality float64) (*Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir := m.sessionDir(sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	cp := Checkpoint{
		ID:              ulid.Make().String(),
		SessionID:       sessionID,
		Phase:           phase,
		AgentKey:        agentKey,
		CreatedAt:       time.Now(),
		CompletedAgents: append([]string{}, completed...),
		Quality:         clamp01(quality),
		State:           StateValid,
	}

	contextPath := ContextPath(m.base, sessionID)
	snapshotPath := filepath.Join(dir, cp.ID+".snapshot")
	switch err := copyFile(contextPath, snapshotPath); {
	case err == nil:
		cp.SnapshotPath = snapshotPath
	case os.IsNotExist(err):
		cp.State = StatePartial
		m.log.Debug("no live context to snapshot", "session_id", sessionID, "agent_key", agentKey)
	default:
		return nil, fmt.Errorf("failed to snapshot context: %w", err)
	}

	records, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	records = append(records, cp)
	if err := m.write(sessionID, records); err != nil {
		return nil, err
	}

	m.log.Info("created checkpoint",
		"session_id", sessionID, "checkpoint_id", cp.ID,
		"agent_key", agentKey, "state", string(cp.State))
	return &cp, nil
}

// List returns all checkpoints for a session in creation order.
// A session with no checkpoint log yields an empty list, not an error.
//
// Records whose snapshot file has gone missing or unreadable are
// surfaced as corrupted so callers do not attempt to roll back to them.
func (m *Manager) List(sessionID string) ([]Checkpoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	records, err := m.load(sessionID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		if records[i].State == StateValid && !readableFile(records[i].SnapshotPath) {
			records[i].State = StateCorrupted
		}
	}
	return records, nil
}

// Latest returns the most recent checkpoint for a session.
func (m *Manager) Latest(sessionID string) (*Checkpoint, bool) {
	records, err := m.List(sessionID)
	if err != nil || len(records) == 0 {
		return nil, false
	}
	// ULIDs order by creation time, and the log is append-only, so the
	// last record is the latest.
	cp := records[len(records)-1]
	return &cp, true
}

// Find returns the checkpoint with the given ID.
func (m *Manager) Find(sessionID, checkpointID string) (*Checkpoint, bool) {
	records, err := m.List(sessionID)
	if err != nil {
		return nil, false
	}
	for i := range records {
		if records[i].ID == checkpointID {
			return &records[i], true
		}
	}
	return nil, false
}

// Rollback restores the live context from the named checkpoint's
// snapshot. It refuses missing, corrupted, and partial checkpoints and
// reports whether the restore happened. The live context is untouched on
// refusal.
func (m *Manager) Rollback(sessionID, checkpointID string) bool {
	cp, ok := m.Find(sessionID, checkpointID)
	if !ok {
		m.log.Warn("rollback refused: checkpoint not found",
			"session_id", sessionID, "checkpoint_id", checkpointID)
		return false
	}
	if cp.State != StateValid {
		m.log.Warn("rollback refused: checkpoint not valid",
			"session_id", sessionID, "checkpoint_id", checkpointID, "state", string(cp.State))
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	contextPath := ContextPath(m.base, sessionID)
	if err := os.MkdirAll(filepath.Dir(contextPath), 0755); err != nil {
		m.log.Error("rollback failed", "session_id", sessionID, "error", err)
		return false
	}
	if err := copyFile(cp.SnapshotPath, contextPath); err != nil {
		m.log.Error("rollback failed", "session_id", sessionID,
			"checkpoint_id", checkpointID, "error", err)
		return false
	}

	m.log.Info("rolled back context",
		"session_id", sessionID, "checkpoint_id", checkpointID, "agent_key", cp.AgentKey)
	return true
}

// load reads the checkpoint log for a session. Absence is an empty log.
func (m *Manager) load(sessionID string) ([]Checkpoint, error) {
	data, err := os.ReadFile(m.logPath(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint log: %w", err)
	}

	var records []Checkpoint
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, errors.Wrap(err, "checkpoint log does not parse")
	}
	return records, nil
}

// write rewrites the whole checkpoint log atomically.
func (m *Manager) write(sessionID string, records []Checkpoint) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint log: %w", err)
	}

	path := m.logPath(sessionID)
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write checkpoint log: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close checkpoint log: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename checkpoint log: %w", err)
	}
	return nil
}

// copyFile copies src to dst byte-for-byte via a temp file and rename.
func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(dst), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename snapshot: %w", err)
	}
	return nil
}

// readableFile reports whether path names a readable regular file.
func readableFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// clamp01 bounds a quality score to [0, 1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
