package daemon

import (
	"encoding/json"

	"github.com/batonworks/baton/internal/errors"
)

// SocketFileName is the default daemon socket file under the base
// directory.
const SocketFileName = "daemon.sock"

// Request is one call on the daemon socket. Requests and responses are
// single JSON values; successful parse is the message boundary.
type Request struct {
	// ID correlates the response with the request. Client-assigned,
	// monotonically increasing per client instance.
	ID uint64 `json:"id"`

	// Method names the operation, e.g. "next" or "complete".
	Method string `json:"method"`

	// Params carries the method's parameter object.
	Params json.RawMessage `json:"params,omitempty"`
}

// Response answers one request: exactly one of Result or Error is set.
type Response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *Error          `json:"error,omitempty"`
}

// Error is the wire form of a failed call.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`

	// Kind is the stable error category tag, so callers can branch
	// without parsing messages.
	Kind string `json:"kind,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// Protocol-level error codes, JSON-RPC style.
const (
	CodeParseError     = -32700
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
)

// kindCodes maps domain error kinds onto stable wire codes.
var kindCodes = map[errors.Kind]int{
	errors.KindNotFound:           1001,
	errors.KindCorrupted:          1002,
	errors.KindExpired:            1003,
	errors.KindMismatch:           1004,
	errors.KindPersistFailure:     1005,
	errors.KindStructureNotReady:  1006,
	errors.KindStructureNotLocked: 1007,
	errors.KindValidation:         1008,
	errors.KindTimeout:            1009,
	errors.KindDaemonUnavailable:  1010,
}

// wireError converts a domain error into its wire form.
func wireError(err error) *Error {
	var we *Error
	if errors.As(err, &we) {
		return we
	}
	kind := errors.KindOf(err)
	code, ok := kindCodes[kind]
	if !ok {
		code = CodeInternal
	}
	return &Error{
		Code:    code,
		Message: err.Error(),
		Kind:    string(kind),
	}
}

// -----------------------------------------------------------------------------
// Method parameter shapes
// -----------------------------------------------------------------------------

// InitParams creates a session.
type InitParams struct {
	Query string `json:"query"`
	Mode  string `json:"mode,omitempty"`
}

// SessionParams addresses one session.
type SessionParams struct {
	SessionID string `json:"session_id"`
}

// CompleteParams reports a completed step.
type CompleteParams struct {
	SessionID string          `json:"session_id"`
	AgentKey  string          `json:"agent_key"`
	Output    json.RawMessage `json:"output,omitempty"`
}

// FailParams reports a failed step.
type FailParams struct {
	SessionID string `json:"session_id"`
	AgentKey  string `json:"agent_key"`
	Message   string `json:"message"`
}

// ListParams filters the session listing.
type ListParams struct {
	All bool `json:"all,omitempty"`

	// Match is a glob over session queries and IDs. Empty matches all.
	Match string `json:"match,omitempty"`

	// MaxAgeDays bounds recency when All is false. 0 uses the TTL.
	MaxAgeDays int `json:"max_age_days,omitempty"`
}

// RollbackParams restores context from a checkpoint. An empty
// CheckpointID targets the session's latest checkpoint.
type RollbackParams struct {
	SessionID    string `json:"session_id"`
	CheckpointID string `json:"checkpoint_id,omitempty"`
}

// CleanParams removes old sessions.
type CleanParams struct {
	OlderThanDays int    `json:"older_than_days,omitempty"`
	Match         string `json:"match,omitempty"`
}

// HealthResult reports server liveness and resource usage.
type HealthResult struct {
	Status        string  `json:"status"`
	PID           int     `json:"pid"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Requests      uint64  `json:"requests"`
	LastRequest   string  `json:"last_request,omitempty"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	SysMB         float64 `json:"sys_mb"`
}
