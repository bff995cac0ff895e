package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete baton configuration
type Config struct {
	Paths   PathsConfig   `mapstructure:"paths"`
	Session SessionConfig `mapstructure:"session"`
	Store   StoreConfig   `mapstructure:"store"`
	Daemon  DaemonConfig  `mapstructure:"daemon"`
	Memory  MemoryConfig  `mapstructure:"memory"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// PathsConfig controls where baton stores data
type PathsConfig struct {
	// BaseDir is the directory where baton keeps sessions, structures,
	// checkpoints, and the daemon socket. If empty, defaults to ~/.baton.
	// Supports ~ for home directory expansion.
	BaseDir string `mapstructure:"base_dir"`
}

// SessionConfig controls session lifecycle behavior
type SessionConfig struct {
	// TTLHours is the number of hours since last activity after which a
	// session is considered expired (default: 24)
	TTLHours int `mapstructure:"ttl_hours"`
}

// StoreConfig controls session persistence behavior
type StoreConfig struct {
	// SaveRetries is the number of write attempts before a save is reported
	// as a persist failure (default: 3)
	SaveRetries int `mapstructure:"save_retries"`
	// RetryDelayMs is the delay between write attempts in milliseconds (default: 250)
	RetryDelayMs int `mapstructure:"retry_delay_ms"`
}

// DaemonConfig controls the warm daemon and its clients
type DaemonConfig struct {
	// Socket is the path of the unix socket the daemon listens on.
	// If empty, defaults to <base_dir>/daemon.sock.
	Socket string `mapstructure:"socket"`
	// AutoStart controls whether clients spawn the daemon when it is not
	// running (default: true)
	AutoStart bool `mapstructure:"auto_start"`
	// CallTimeoutSeconds is the per-request timeout for daemon calls (default: 30)
	CallTimeoutSeconds int `mapstructure:"call_timeout_seconds"`
	// StartupTimeoutSeconds is how long a client waits for a freshly spawned
	// daemon to start accepting connections (default: 10)
	StartupTimeoutSeconds int `mapstructure:"startup_timeout_seconds"`
	// IdleTimeoutMinutes is how long the daemon stays alive with no requests
	// before exiting on its own. 0 disables the idle exit. (default: 30)
	IdleTimeoutMinutes int `mapstructure:"idle_timeout_minutes"`
}

// MemoryConfig controls the episodic memory collaborator
type MemoryConfig struct {
	// Enabled controls whether past episodes are recorded and injected into
	// prompts (default: true)
	Enabled bool `mapstructure:"enabled"`
	// MaxEpisodes is the number of recent episodes retained per query slug (default: 5)
	MaxEpisodes int `mapstructure:"max_episodes"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation (default: 10)
	MaxSizeMB int `mapstructure:"max_size_mb"`
	// MaxBackups is the number of backup log files to keep (default: 3)
	MaxBackups int `mapstructure:"max_backups"`
}

// ResolveBaseDir returns the resolved base directory path.
// If BaseDir is empty, it returns ~/.baton. If BaseDir starts with ~,
// it expands to the user's home directory.
func (p *PathsConfig) ResolveBaseDir() string {
	path := p.BaseDir
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ".baton"
		}
		return filepath.Join(home, ".baton")
	}

	// Expand ~ to home directory
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, path[2:])
		}
	} else if path == "~" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = home
		}
	}

	return path
}

// ResolveSocket returns the daemon socket path, defaulting to
// <baseDir>/daemon.sock when unset.
func (d *DaemonConfig) ResolveSocket(baseDir string) string {
	if d.Socket != "" {
		return d.Socket
	}
	return filepath.Join(baseDir, "daemon.sock")
}

// TTL returns the session TTL as a time.Duration
func (s *SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

// RetryDelay returns the save retry delay as a time.Duration
func (s *StoreConfig) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelayMs) * time.Millisecond
}

// CallTimeout returns the daemon call timeout as a time.Duration
func (d *DaemonConfig) CallTimeout() time.Duration {
	return time.Duration(d.CallTimeoutSeconds) * time.Second
}

// StartupTimeout returns the daemon startup timeout as a time.Duration
func (d *DaemonConfig) StartupTimeout() time.Duration {
	return time.Duration(d.StartupTimeoutSeconds) * time.Second
}

// IdleTimeout returns the daemon idle timeout as a time.Duration (0 means disabled)
func (d *DaemonConfig) IdleTimeout() time.Duration {
	return time.Duration(d.IdleTimeoutMinutes) * time.Minute
}

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			BaseDir: "", // Empty means use default: ~/.baton
		},
		Session: SessionConfig{
			TTLHours: 24,
		},
		Store: StoreConfig{
			SaveRetries:  3,
			RetryDelayMs: 250,
		},
		Daemon: DaemonConfig{
			Socket:                "", // Empty means use default: <base_dir>/daemon.sock
			AutoStart:             true,
			CallTimeoutSeconds:    30,
			StartupTimeoutSeconds: 10,
			IdleTimeoutMinutes:    30,
		},
		Memory: MemoryConfig{
			Enabled:     true,
			MaxEpisodes: 5,
		},
		Logging: LoggingConfig{
			Enabled:    true,
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Paths defaults
	viper.SetDefault("paths.base_dir", defaults.Paths.BaseDir)

	// Session defaults
	viper.SetDefault("session.ttl_hours", defaults.Session.TTLHours)

	// Store defaults
	viper.SetDefault("store.save_retries", defaults.Store.SaveRetries)
	viper.SetDefault("store.retry_delay_ms", defaults.Store.RetryDelayMs)

	// Daemon defaults
	viper.SetDefault("daemon.socket", defaults.Daemon.Socket)
	viper.SetDefault("daemon.auto_start", defaults.Daemon.AutoStart)
	viper.SetDefault("daemon.call_timeout_seconds", defaults.Daemon.CallTimeoutSeconds)
	viper.SetDefault("daemon.startup_timeout_seconds", defaults.Daemon.StartupTimeoutSeconds)
	viper.SetDefault("daemon.idle_timeout_minutes", defaults.Daemon.IdleTimeoutMinutes)

	// Memory defaults
	viper.SetDefault("memory.enabled", defaults.Memory.Enabled)
	viper.SetDefault("memory.max_episodes", defaults.Memory.MaxEpisodes)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.max_size_mb", defaults.Logging.MaxSizeMB)
	viper.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Validate the configuration
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	// Check XDG_CONFIG_HOME first
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "baton")
	}
	// Fall back to ~/.config/baton
	home, err := os.UserHomeDir()
	if err != nil {
		return ".baton"
	}
	return filepath.Join(home, ".config", "baton")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
