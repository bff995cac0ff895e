package config

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents a single validation failure
type ValidationError struct {
	Field   string // The config field path (e.g., "store.save_retries")
	Value   any    // The invalid value
	Message string // Human-readable error description
}

// Error implements the error interface for ValidationError
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface for ValidationErrors
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation errors:\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// ValidLogLevels returns the list of valid log levels
func ValidLogLevels() []string {
	return []string{"debug", "info", "warn", "error"}
}

// Validate checks the Config for invalid values and returns all validation errors found
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Session config
	errors = append(errors, c.validateSession()...)

	// Validate Store config
	errors = append(errors, c.validateStore()...)

	// Validate Daemon config
	errors = append(errors, c.validateDaemon()...)

	// Validate Memory config
	errors = append(errors, c.validateMemory()...)

	// Validate Logging config
	errors = append(errors, c.validateLogging()...)

	return errors
}

// validateSession validates the SessionConfig
func (c *Config) validateSession() []ValidationError {
	var errors []ValidationError

	const maxTTLHours = 24 * 365

	if c.Session.TTLHours < 1 {
		errors = append(errors, ValidationError{
			Field:   "session.ttl_hours",
			Value:   c.Session.TTLHours,
			Message: "must be at least 1 hour",
		})
	}
	if c.Session.TTLHours > maxTTLHours {
		errors = append(errors, ValidationError{
			Field:   "session.ttl_hours",
			Value:   c.Session.TTLHours,
			Message: fmt.Sprintf("exceeds maximum of %d hours", maxTTLHours),
		})
	}

	return errors
}

// validateStore validates the StoreConfig
func (c *Config) validateStore() []ValidationError {
	var errors []ValidationError

	const maxSaveRetries = 10
	const minRetryDelay = 10    // 10ms minimum
	const maxRetryDelay = 10000 // 10 seconds maximum

	if c.Store.SaveRetries < 1 {
		errors = append(errors, ValidationError{
			Field:   "store.save_retries",
			Value:   c.Store.SaveRetries,
			Message: "must be at least 1",
		})
	}
	if c.Store.SaveRetries > maxSaveRetries {
		errors = append(errors, ValidationError{
			Field:   "store.save_retries",
			Value:   c.Store.SaveRetries,
			Message: fmt.Sprintf("exceeds maximum of %d", maxSaveRetries),
		})
	}

	if c.Store.RetryDelayMs < minRetryDelay {
		errors = append(errors, ValidationError{
			Field:   "store.retry_delay_ms",
			Value:   c.Store.RetryDelayMs,
			Message: fmt.Sprintf("must be at least %dms", minRetryDelay),
		})
	}
	if c.Store.RetryDelayMs > maxRetryDelay {
		errors = append(errors, ValidationError{
			Field:   "store.retry_delay_ms",
			Value:   c.Store.RetryDelayMs,
			Message: fmt.Sprintf("exceeds maximum of %dms", maxRetryDelay),
		})
	}

	return errors
}

// validateDaemon validates the DaemonConfig
func (c *Config) validateDaemon() []ValidationError {
	var errors []ValidationError

	const maxCallTimeout = 600   // 10 minutes
	const maxStartupTimeout = 120
	const maxIdleTimeout = 1440 // 24 hours

	if c.Daemon.CallTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "daemon.call_timeout_seconds",
			Value:   c.Daemon.CallTimeoutSeconds,
			Message: "must be at least 1 second",
		})
	}
	if c.Daemon.CallTimeoutSeconds > maxCallTimeout {
		errors = append(errors, ValidationError{
			Field:   "daemon.call_timeout_seconds",
			Value:   c.Daemon.CallTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxCallTimeout),
		})
	}

	if c.Daemon.StartupTimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "daemon.startup_timeout_seconds",
			Value:   c.Daemon.StartupTimeoutSeconds,
			Message: "must be at least 1 second",
		})
	}
	if c.Daemon.StartupTimeoutSeconds > maxStartupTimeout {
		errors = append(errors, ValidationError{
			Field:   "daemon.startup_timeout_seconds",
			Value:   c.Daemon.StartupTimeoutSeconds,
			Message: fmt.Sprintf("exceeds maximum of %d seconds", maxStartupTimeout),
		})
	}

	// 0 disables the idle exit
	if c.Daemon.IdleTimeoutMinutes < 0 {
		errors = append(errors, ValidationError{
			Field:   "daemon.idle_timeout_minutes",
			Value:   c.Daemon.IdleTimeoutMinutes,
			Message: "must be non-negative (0 disables idle exit)",
		})
	}
	if c.Daemon.IdleTimeoutMinutes > maxIdleTimeout {
		errors = append(errors, ValidationError{
			Field:   "daemon.idle_timeout_minutes",
			Value:   c.Daemon.IdleTimeoutMinutes,
			Message: fmt.Sprintf("exceeds maximum of %d minutes", maxIdleTimeout),
		})
	}

	return errors
}

// validateMemory validates the MemoryConfig
func (c *Config) validateMemory() []ValidationError {
	var errors []ValidationError

	const maxEpisodes = 100

	if c.Memory.MaxEpisodes < 0 {
		errors = append(errors, ValidationError{
			Field:   "memory.max_episodes",
			Value:   c.Memory.MaxEpisodes,
			Message: "must be non-negative",
		})
	}
	if c.Memory.MaxEpisodes > maxEpisodes {
		errors = append(errors, ValidationError{
			Field:   "memory.max_episodes",
			Value:   c.Memory.MaxEpisodes,
			Message: fmt.Sprintf("exceeds maximum of %d", maxEpisodes),
		})
	}

	return errors
}

// validateLogging validates the LoggingConfig
func (c *Config) validateLogging() []ValidationError {
	var errors []ValidationError

	const maxLogSizeMB = 1000
	const maxLogBackups = 50

	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels(), strings.ToLower(c.Logging.Level)) {
		errors = append(errors, ValidationError{
			Field:   "logging.level",
			Value:   c.Logging.Level,
			Message: fmt.Sprintf("must be one of: %s", strings.Join(ValidLogLevels(), ", ")),
		})
	}

	if c.Logging.MaxSizeMB < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: "must be non-negative (0 disables rotation)",
		})
	}
	if c.Logging.MaxSizeMB > maxLogSizeMB {
		errors = append(errors, ValidationError{
			Field:   "logging.max_size_mb",
			Value:   c.Logging.MaxSizeMB,
			Message: fmt.Sprintf("exceeds maximum of %d MB", maxLogSizeMB),
		})
	}

	if c.Logging.MaxBackups < 0 {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: "must be non-negative",
		})
	}
	if c.Logging.MaxBackups > maxLogBackups {
		errors = append(errors, ValidationError{
			Field:   "logging.max_backups",
			Value:   c.Logging.MaxBackups,
			Message: fmt.Sprintf("exceeds maximum of %d", maxLogBackups),
		})
	}

	return errors
}
