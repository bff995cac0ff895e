// Package logging provides structured logging for baton.
//
// This package wraps Go's log/slog to provide JSON-formatted logs with
// context propagation support for debugging and post-hoc analysis. It is
// designed to help troubleshoot long-running pipeline sessions and the warm
// daemon by providing structured, filterable logs that can be analyzed after
// the fact.
//
// # Features
//
//   - JSON-formatted structured logging via slog
//   - Configurable log levels (DEBUG, INFO, WARN, ERROR)
//   - Context propagation (session ID, agent key, component)
//   - Log rotation with configurable size limits
//   - Log reading and filtering utilities for the daemon log
//
// # Thread Safety
//
// All types in this package are safe for concurrent use. The [Logger] type
// uses Go's slog internally which is designed for concurrent access. The
// [RotatingWriter] type uses a mutex to protect file operations during
// rotation. Child loggers created via With* methods share the underlying
// writer safely.
//
// # Basic Usage
//
// Create a logger that writes to a file:
//
//	logger, err := logging.NewLogger("/path/to/base/daemon.log", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	// Log messages at various levels
//	logger.Debug("detailed info", "key", "value")
//	logger.Info("operation completed", "duration_ms", 150)
//	logger.Warn("potential issue", "threshold", 100)
//	logger.Error("operation failed", "error", err.Error())
//
// # Context Propagation
//
// Create child loggers with persistent context attributes:
//
//	// Add session context
//	sessionLogger := logger.WithSession("7f3c9c2e-...")
//
//	// Add agent context
//	agentLogger := sessionLogger.WithAgent("web-researcher")
//
//	// Add component context
//	storeLogger := logger.WithComponent("store")
//
//	// All logs from agentLogger will include session_id and agent_key
//	agentLogger.Info("step completed", "index", 3)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"step completed","session_id":"7f3c9c2e-...","agent_key":"web-researcher","index":3}
//
// # Log Rotation
//
// The daemon uses rotation to prevent unbounded log growth:
//
//	config := logging.RotationConfig{
//	    MaxSizeMB:  10, // Rotate when file exceeds 10MB
//	    MaxBackups: 3,  // Keep 3 backup files
//	}
//
//	logger, err := logging.NewRotatingLogger("/path/to/base/daemon.log", "INFO", config)
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
// Rotated files are named: daemon.log.1, daemon.log.2, etc., where .1 is the
// most recent backup.
//
// # Testing
//
// For testing, use [NopLogger] to discard all log output:
//
//	func TestSomething(t *testing.T) {
//	    logger := logging.NopLogger()
//	    // Use logger in tests without creating files
//	}
//
// # Log Reading and Filtering
//
// Read and analyze the daemon log after the fact:
//
//	entries, err := logging.ReadLogFile("/path/to/base/daemon.log")
//	if err != nil {
//	    return err
//	}
//
//	// Filter logs by various criteria
//	filter := logging.LogFilter{
//	    Level:     "WARN",        // Minimum level
//	    SessionID: "7f3c9c2e-...", // Specific session
//	    Since:     time.Now().Add(-1 * time.Hour),
//	}
//	filtered := logging.FilterLogs(entries, filter)
//
// # Log Levels
//
// The package defines four log levels:
//
//   - [LevelDebug]: Detailed information for debugging
//   - [LevelInfo]: General operational information (default)
//   - [LevelWarn]: Warning conditions that may need attention
//   - [LevelError]: Error conditions that affect functionality
//
// Use [ValidLevels] to get the list of valid level strings, and [ParseLevel]
// to normalize user-provided level strings.
//
// # Configuration
//
// The logging system is typically configured via baton's config file:
//
//	logging:
//	  enabled: true
//	  level: info
//	  max_size_mb: 10
//	  max_backups: 3
package logging
