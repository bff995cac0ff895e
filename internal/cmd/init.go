package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/batonworks/baton/internal/daemon"
)

var initMode string

var initCmd = &cobra.Command{
	Use:   "init <query>",
	Short: "Start a new pipeline session",
	Long: `Create a session for a research query and print its record. The
session starts at the first step of the pipeline; use "baton next" to
see what to execute.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initMode, "mode", "standard", "execution mode recorded on the session")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	return callDaemon("init", daemon.InitParams{Query: query, Mode: initMode})
}
