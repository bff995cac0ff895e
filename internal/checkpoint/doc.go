// Package checkpoint snapshots the opaque external context of a session
// after each completed pipeline step and restores it on rollback.
//
// The context blob itself belongs to the external executor; this package
// only knows its path convention. Each session keeps an append-only JSON
// log of [Checkpoint] records, rewritten in full on every append, plus
// one snapshot file per checkpoint named by its ULID. Rollback refuses
// anything but a valid checkpoint and reports success as a boolean; a
// refused rollback leaves the live context untouched.
package checkpoint
