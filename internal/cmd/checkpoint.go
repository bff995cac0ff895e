package cmd

import (
	"github.com/spf13/cobra"

	"github.com/batonworks/baton/internal/daemon"
)

var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints <session-id>",
	Short: "List a session's checkpoints",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheckpoints,
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback <session-id> [checkpoint-id]",
	Short: "Restore session context from a checkpoint",
	Long: `Restore the session's context file from a checkpoint snapshot. With no
checkpoint ID the latest one is used. Corrupted or partial checkpoints
are refused, leaving the live context untouched.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runRollback,
}

func init() {
	rootCmd.AddCommand(checkpointsCmd, rollbackCmd)
}

func runCheckpoints(cmd *cobra.Command, args []string) error {
	return callDaemon("checkpoints", daemon.SessionParams{SessionID: args[0]})
}

func runRollback(cmd *cobra.Command, args []string) error {
	params := daemon.RollbackParams{SessionID: args[0]}
	if len(args) == 2 {
		params.CheckpointID = args[1]
	}
	return callDaemon("rollback", params)
}
