package config

import (
	"strings"
	"testing"
)

func TestValidationError_Error(t *testing.T) {
	err := ValidationError{
		Field:   "test.field",
		Value:   123,
		Message: "must be greater than zero",
	}

	expected := "test.field: must be greater than zero (got: 123)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestValidationErrors_Error(t *testing.T) {
	t.Run("empty errors", func(t *testing.T) {
		var errs ValidationErrors
		if errs.Error() != "" {
			t.Errorf("Error() for empty = %q, want empty string", errs.Error())
		}
	})

	t.Run("single error", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "test.field", Value: 123, Message: "is invalid"},
		}
		expected := "test.field: is invalid (got: 123)"
		if errs.Error() != expected {
			t.Errorf("Error() = %q, want %q", errs.Error(), expected)
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		errs := ValidationErrors{
			{Field: "field1", Value: "bad", Message: "is invalid"},
			{Field: "field2", Value: -1, Message: "must be positive"},
		}
		result := errs.Error()
		if !strings.Contains(result, "2 validation errors") {
			t.Errorf("Error() should mention 2 errors: %s", result)
		}
		if !strings.Contains(result, "field1") || !strings.Contains(result, "field2") {
			t.Errorf("Error() should mention both fields: %s", result)
		}
	})
}

func TestConfig_Validate_DefaultConfig(t *testing.T) {
	cfg := Default()
	errs := cfg.Validate()
	if len(errs) != 0 {
		t.Errorf("Default config should be valid, got %d errors: %v", len(errs), errs)
	}
}

func TestConfig_Validate_Session(t *testing.T) {
	t.Run("zero ttl is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Session.TTLHours = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "session.ttl_hours" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero ttl")
		}
	})

	t.Run("negative ttl is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Session.TTLHours = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "session.ttl_hours" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative ttl")
		}
	})

	t.Run("excessive ttl is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Session.TTLHours = 10000
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "session.ttl_hours" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive ttl")
		}
	})

	t.Run("valid ttl values", func(t *testing.T) {
		for _, hours := range []int{1, 24, 168, 8760} {
			cfg := Default()
			cfg.Session.TTLHours = hours
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "session.ttl_hours" {
					t.Errorf("ttl %d should be valid, got error: %v", hours, err)
				}
			}
		}
	})
}

func TestConfig_Validate_Store(t *testing.T) {
	t.Run("zero save retries is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Store.SaveRetries = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "store.save_retries" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero save retries")
		}
	})

	t.Run("excessive save retries is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Store.SaveRetries = 50
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "store.save_retries" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive save retries")
		}
	})

	t.Run("retry delay too small", func(t *testing.T) {
		cfg := Default()
		cfg.Store.RetryDelayMs = 5
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "store.retry_delay_ms" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for small retry delay")
		}
	})

	t.Run("retry delay too large", func(t *testing.T) {
		cfg := Default()
		cfg.Store.RetryDelayMs = 60000
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "store.retry_delay_ms" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for large retry delay")
		}
	})
}

func TestConfig_Validate_Daemon(t *testing.T) {
	t.Run("zero call timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.CallTimeoutSeconds = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "daemon.call_timeout_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero call timeout")
		}
	})

	t.Run("excessive call timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.CallTimeoutSeconds = 1000
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "daemon.call_timeout_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive call timeout")
		}
	})

	t.Run("zero startup timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.StartupTimeoutSeconds = 0
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "daemon.startup_timeout_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for zero startup timeout")
		}
	})

	t.Run("excessive startup timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.StartupTimeoutSeconds = 300
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "daemon.startup_timeout_seconds" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive startup timeout")
		}
	})

	t.Run("zero idle timeout is valid (disabled)", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.IdleTimeoutMinutes = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "daemon.idle_timeout_minutes" {
				t.Errorf("zero idle timeout should be valid: %v", err)
			}
		}
	})

	t.Run("negative idle timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.IdleTimeoutMinutes = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "daemon.idle_timeout_minutes" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative idle timeout")
		}
	})

	t.Run("excessive idle timeout is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Daemon.IdleTimeoutMinutes = 2000
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "daemon.idle_timeout_minutes" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive idle timeout")
		}
	})
}

func TestConfig_Validate_Memory(t *testing.T) {
	t.Run("zero max episodes is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Memory.MaxEpisodes = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "memory.max_episodes" {
				t.Errorf("zero max episodes should be valid: %v", err)
			}
		}
	})

	t.Run("negative max episodes is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Memory.MaxEpisodes = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "memory.max_episodes" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative max episodes")
		}
	})

	t.Run("excessive max episodes is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Memory.MaxEpisodes = 500
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "memory.max_episodes" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive max episodes")
		}
	})
}

func TestConfig_Validate_Logging(t *testing.T) {
	t.Run("valid log levels", func(t *testing.T) {
		for _, level := range []string{"debug", "info", "warn", "error", ""} {
			cfg := Default()
			cfg.Logging.Level = level
			errs := cfg.Validate()

			for _, err := range errs {
				if err.Field == "logging.level" {
					t.Errorf("level %q should be valid, got error: %v", level, err)
				}
			}
		}
	})

	t.Run("invalid log level", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "invalid"
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.level" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for invalid log level")
		}
	})

	t.Run("uppercase log level is normalized", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.Level = "INFO"
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "logging.level" {
				t.Errorf("uppercase level should be accepted, got error: %v", err)
			}
		}
	})

	t.Run("zero max size is valid (rotation disabled)", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "logging.max_size_mb" {
				t.Errorf("zero max size should be valid: %v", err)
			}
		}
	})

	t.Run("negative max size is invalid", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_size_mb" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative max size")
		}
	})

	t.Run("max size too large", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxSizeMB = 2000
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_size_mb" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for excessive max size")
		}
	})

	t.Run("negative max backups", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxBackups = -1
		errs := cfg.Validate()

		found := false
		for _, err := range errs {
			if err.Field == "logging.max_backups" {
				found = true
				break
			}
		}
		if !found {
			t.Error("expected error for negative max backups")
		}
	})

	t.Run("zero max backups is valid", func(t *testing.T) {
		cfg := Default()
		cfg.Logging.MaxBackups = 0
		errs := cfg.Validate()

		for _, err := range errs {
			if err.Field == "logging.max_backups" {
				t.Errorf("zero max backups should be valid: %v", err)
			}
		}
	})
}

func TestValidLogLevels(t *testing.T) {
	levels := ValidLogLevels()
	expected := []string{"debug", "info", "warn", "error"}

	if len(levels) != len(expected) {
		t.Errorf("ValidLogLevels() length = %d, want %d", len(levels), len(expected))
	}

	for i, level := range expected {
		if levels[i] != level {
			t.Errorf("ValidLogLevels()[%d] = %q, want %q", i, levels[i], level)
		}
	}
}

func TestConfig_Validate_MultipleErrors(t *testing.T) {
	cfg := Default()
	// Set multiple invalid values
	cfg.Session.TTLHours = 0
	cfg.Store.SaveRetries = 0
	cfg.Logging.Level = "invalid"
	cfg.Memory.MaxEpisodes = -1

	errs := cfg.Validate()
	if len(errs) < 4 {
		t.Errorf("expected at least 4 errors, got %d: %v", len(errs), errs)
	}
}
