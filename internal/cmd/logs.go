package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/batonworks/baton/internal/logging"
)

var (
	logsLevel     string
	logsSession   string
	logsComponent string
	logsContains  string
	logsSinceMins int
	logsTail      int
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Inspect the baton log file",
	Long: `Read and filter the structured log file. Runs entirely locally: the
daemon and the CLI write to the same file, so no daemon call is needed.`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "minimum level (debug, info, warn, error)")
	logsCmd.Flags().StringVar(&logsSession, "session", "", "only entries for this session id")
	logsCmd.Flags().StringVar(&logsComponent, "component", "", "only entries from this component")
	logsCmd.Flags().StringVar(&logsContains, "contains", "", "only entries whose message contains this substring")
	logsCmd.Flags().IntVar(&logsSinceMins, "since", 0, "only entries from the last N minutes")
	logsCmd.Flags().IntVar(&logsTail, "tail", 50, "show at most the last N matching entries (0 = all)")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Close()

	path := logFilePath(cfg)
	entries, err := logging.ReadLogFile(path)
	if err != nil {
		return err
	}

	filter := logging.LogFilter{
		Level:           logsLevel,
		SessionID:       logsSession,
		Component:       logsComponent,
		MessageContains: logsContains,
	}
	if logsSinceMins > 0 {
		filter.Since = time.Now().Add(-time.Duration(logsSinceMins) * time.Minute)
	}

	matched := logging.FilterLogs(entries, filter)
	matched = logging.Tail(matched, logsTail)

	return emit(map[string]any{
		"file":    path,
		"total":   len(entries),
		"matched": len(matched),
		"entries": matched,
	})
}
