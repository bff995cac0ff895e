package cmd

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/batonworks/baton/internal/config"
	"github.com/batonworks/baton/internal/daemon"
	"github.com/batonworks/baton/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "baton",
	Short: "Pipeline session orchestrator with a warm daemon",
	Long: `Baton drives multi-phase research pipelines: it tracks which step a
session is on, hands the caller the next step to execute, and records
completions and failures. A warm background daemon keeps catalog and
session state resident so individual CLI calls stay fast.

Every command prints a single JSON object on stdout; errors go to
stderr as {"error": {...}} with a non-zero exit.`,

	SilenceErrors: true,
	SilenceUsage:  true,
}

// noAutoStart is the --no-daemon-autostart global flag.
var noAutoStart bool

// Execute runs the root command, printing failures as JSON error
// envelopes. The return value is the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		writeErrorEnvelope(err)
		return 1
	}
	return 0
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/baton/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.PersistentFlags().BoolVar(&noAutoStart, "no-daemon-autostart", false,
		"fail instead of spawning the daemon when it is not running")
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath("$HOME/.config/baton")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("BATON")
	// Replace dots with underscores for nested keys in env vars
	// e.g., BATON_DAEMON_AUTO_START for daemon.auto_start
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}

// loadConfig resolves the effective configuration and a logger for it.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	return cfg, newLogger(cfg), nil
}

// newLogger builds the CLI-side file logger, or a no-op when logging is
// disabled or the log file cannot be opened.
func newLogger(cfg *config.Config) *logging.Logger {
	if !cfg.Logging.Enabled {
		return logging.NopLogger()
	}
	log, err := logging.NewRotatingLogger(logFilePath(cfg), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
	})
	if err != nil {
		return logging.NopLogger()
	}
	return log
}

// logFilePath is where both the CLI and the daemon write their log.
func logFilePath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.ResolveBaseDir(), "logs", "baton.log")
}

// newClient builds a daemon client honoring --no-daemon-autostart.
func newClient(cfg *config.Config, log *logging.Logger) *daemon.Client {
	client := daemon.NewClient(cfg, log)
	if noAutoStart {
		client.DisableAutoStart()
	}
	return client
}

// callDaemon is the shared body of commands that are one daemon call:
// load config, call, print the raw result.
func callDaemon(method string, params any) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Close()

	var result json.RawMessage
	if err := newClient(cfg, log).Call(method, params, &result); err != nil {
		return err
	}
	return emitRaw(result)
}
