// Package session defines the persistent session record and its
// file-backed store.
//
// A [Session] tracks one pipeline run: the cursor into the effective
// step sequence, the append-only list of completed agent keys, reported
// outputs and errors, and the frozen result of dynamic expansion. The
// [Store] keeps one JSON document per session under the sessions
// directory, written atomically with bounded retries.
//
// The store deliberately provides no cross-process locking. Two
// processes mutating the same session race with last-write-wins
// semantics; single-writer-per-session-id is an invariant the caller
// (normally the warm daemon) maintains.
package session
