package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/batonworks/baton/internal/errors"
	"github.com/batonworks/baton/internal/logging"
)

// FileExt is the session file extension.
const FileExt = ".json"

// Dir returns the sessions directory under a base directory.
func Dir(base string) string {
	return filepath.Join(base, "sessions")
}

// Options control store persistence and expiry behavior.
type Options struct {
	// TTL is the inactivity duration after which a session is expired.
	TTL time.Duration

	// SaveRetries is the number of write attempts before Save reports a
	// persist failure.
	SaveRetries int

	// RetryDelay is the fixed delay between write attempts.
	RetryDelay time.Duration
}

// DefaultOptions returns the standard store options.
func DefaultOptions() Options {
	return Options{
		TTL:         24 * time.Hour,
		SaveRetries: 3,
		RetryDelay:  250 * time.Millisecond,
	}
}

// Store persists sessions as one JSON file per session ID.
//
// Writes are atomic (temp file + rename) so readers never observe a
// partially written session. There is no cross-process lock on session
// files: concurrent writers to the same ID race with last-write-wins
// semantics, and single-writer-per-session is an external invariant.
type Store struct {
	dir  string
	opts Options
	log  *logging.Logger
}

// NewStore creates a session store over the given sessions directory,
// creating it if absent.
func NewStore(dir string, opts Options, log *logging.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create sessions directory: %w", err)
	}
	if log == nil {
		log = logging.NopLogger()
	}
	if opts.SaveRetries < 1 {
		opts.SaveRetries = 1
	}
	return &Store{
		dir:  dir,
		opts: opts,
		log:  log.WithComponent("store"),
	}, nil
}

// Path returns the file path for a session ID.
func (st *Store) Path(id string) string {
	return filepath.Join(st.dir, id+FileExt)
}

// TTL returns the configured inactivity TTL.
func (st *Store) TTL() time.Duration {
	return st.opts.TTL
}

// ValidateID checks that id is a well-formed session identifier.
// IDs are UUIDs; anything else is rejected before any filesystem I/O.
func ValidateID(id string) error {
	if id == "" {
		return errors.NewValidationError("session id is empty").WithField("id")
	}
	if _, err := uuid.Parse(id); err != nil {
		return errors.NewValidationError("session id is not a valid UUID").
			WithField("id").WithValue(id).WithCause(err)
	}
	return nil
}

// Create builds a new session for the given ID and persists it.
// The ID is validated before any I/O; an existing session with the same
// ID is an error.
func (st *Store) Create(id, query, pipelineName, mode string, totalAgents int) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	if st.Exists(id) {
		return nil, errors.NewSessionError("session already exists", errors.ErrInvalidInput).WithSessionID(id)
	}

	s := New(id, query, pipelineName, mode, totalAgents)
	if err := st.Save(s); err != nil {
		return nil, err
	}
	st.log.Info("created session", "session_id", id, "pipeline", pipelineName)
	return s, nil
}

// Save persists the session atomically, retrying on I/O failure.
//
// After exhausting retries it returns a PersistError carrying the
// serialized in-memory session, so the caller still holds the state the
// store could not write.
func (st *Store) Save(s *Session) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.NewSessionError("failed to marshal session", err).WithSessionID(s.ID)
	}

	path := st.Path(s.ID)
	var lastErr error
	for attempt := 1; attempt <= st.opts.SaveRetries; attempt++ {
		if lastErr = atomicWriteFile(path, data, 0644); lastErr == nil {
			return nil
		}
		st.log.Warn("session write failed",
			"session_id", s.ID, "attempt", attempt, "error", lastErr)
		if attempt < st.opts.SaveRetries {
			time.Sleep(st.opts.RetryDelay)
		}
	}

	return errors.NewPersistError(s.ID, st.opts.SaveRetries, data, lastErr)
}

// Load reads and validates the session with the given ID.
//
// A missing file is a not-found error; a file that does not parse or is
// missing required fields is reported as corrupted.
func (st *Store) Load(id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(st.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
		}
		return nil, errors.NewSessionError("failed to read session file", err).WithSessionID(id)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, errors.NewSessionError("session file does not parse", errors.ErrSessionCorrupted).WithSessionID(id)
	}
	if err := validateSession(&s); err != nil {
		return nil, errors.NewSessionError(err.Error(), errors.ErrSessionCorrupted).WithSessionID(id)
	}
	return &s, nil
}

// validateSession checks that every required field survived the round
// trip to disk. Optional fields (dynamic agents, frozen total) are not
// checked.
func validateSession(s *Session) error {
	var missing []string
	if s.ID == "" {
		missing = append(missing, "id")
	}
	if s.Query == "" {
		missing = append(missing, "query")
	}
	if s.Pipeline == "" {
		missing = append(missing, "pipeline")
	}
	if !s.Status.Valid() {
		missing = append(missing, "status")
	}
	if s.StartTime.IsZero() {
		missing = append(missing, "start_time")
	}
	if s.LastActivityTime.IsZero() {
		missing = append(missing, "last_activity_time")
	}
	if s.CompletedAgents == nil {
		missing = append(missing, "completed_agents")
	}
	if s.AgentOutputs == nil {
		missing = append(missing, "agent_outputs")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if s.CurrentAgentIndex < 0 || s.TotalAgents < 0 {
		return fmt.Errorf("negative progress counters")
	}
	return nil
}

// Exists reports whether a session file is present for id.
// Never errors; malformed IDs and missing files both report false.
func (st *Store) Exists(id string) bool {
	if ValidateID(id) != nil {
		return false
	}
	info, err := os.Stat(st.Path(id))
	return err == nil && !info.IsDir()
}

// IsExpired reports whether the session's last activity is older than
// the store TTL.
func (st *Store) IsExpired(s *Session) bool {
	return time.Since(s.LastActivityTime) > st.opts.TTL
}

// List returns sessions sorted by last activity, newest first.
//
// Listing is best-effort: files that fail to load are skipped silently.
// Unless includeAll is set, sessions with no activity within maxAge are
// filtered out; a zero maxAge falls back to the store TTL.
func (st *Store) List(includeAll bool, maxAge time.Duration) ([]*Session, error) {
	entries, err := os.ReadDir(st.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read sessions directory: %w", err)
	}

	if maxAge <= 0 {
		maxAge = st.opts.TTL
	}
	cutoff := time.Now().Add(-maxAge)

	var sessions []*Session
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), FileExt) {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), FileExt)
		s, err := st.Load(id)
		if err != nil {
			st.log.Debug("skipping unloadable session file", "file", entry.Name(), "error", err)
			continue
		}
		if !includeAll && s.LastActivityTime.Before(cutoff) {
			continue
		}
		sessions = append(sessions, s)
	}

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].LastActivityTime.After(sessions[j].LastActivityTime)
	})
	return sessions, nil
}

// Delete removes the session file for id.
func (st *Store) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := os.Remove(st.Path(id)); err != nil {
		if os.IsNotExist(err) {
			return errors.NewNotFoundError("session", id).WithCause(errors.ErrSessionNotFound)
		}
		return errors.NewSessionError("failed to delete session file", err).WithSessionID(id)
	}
	st.log.Info("deleted session", "session_id", id)
	return nil
}

// atomicWriteFile writes data to path via a temp file in the same
// directory followed by a rename, so the target is never observed in a
// partially written state.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}
