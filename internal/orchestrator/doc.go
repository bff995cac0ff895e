// Package orchestrator implements the session state machine that drives
// pipeline runs.
//
// Sessions move RUNNING -> {PAUSED, COMPLETED, FAILED}; the cursor into
// the effective step sequence only ever advances, and only through
// Complete. All index-to-step routing delegates to pipeline.ResolveStep
// so no two operations can disagree about what the cursor means.
//
// When the cursor reaches the dynamic phase the orchestrator attempts
// expansion through its [Expander]: a structure that is absent or not
// yet locked is normal (the cursor keeps routing statically and
// expansion retries on the next call), while a locked-but-malformed
// structure is an error. A successful expansion is frozen into the
// session exactly once; the structure artifact can change afterwards
// without affecting sessions that already expanded.
//
// Collaborators (prompt building, quality scoring, episodic memory,
// checkpointing) are consumed through small interfaces. Memory and
// checkpointing are best-effort: their failures are logged and never
// abort a step.
package orchestrator
