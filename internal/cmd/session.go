package cmd

import (
	"github.com/spf13/cobra"

	"github.com/batonworks/baton/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status <session-id>",
	Short: "Show a session's progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var (
	listAll        bool
	listMatch      string
	listMaxAgeDays int
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions",
	Long: `List recent sessions with their progress. By default only sessions
active within the TTL are shown; --all includes everything on disk and
--match narrows by a glob over session IDs, queries, and slugs.`,
	RunE: runList,
}

var resumeCmd = &cobra.Command{
	Use:   "resume <session-id>",
	Short: "Resume a session and show its current step",
	Long: `Transition a paused session back to running and print the step it
should execute now. Resuming never re-runs completed steps.`,
	Args: cobra.ExactArgs(1),
	RunE: runResume,
}

var pauseCmd = &cobra.Command{
	Use:   "pause <session-id>",
	Short: "Pause a running session",
	Args:  cobra.ExactArgs(1),
	RunE:  runPause,
}

var abortCmd = &cobra.Command{
	Use:   "abort <session-id>",
	Short: "Terminate a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runAbort,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Remove a session's record",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var (
	cleanOlderThan int
	cleanMatch     string
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove stale sessions",
	Long: `Remove sessions whose last activity is older than the cutoff
(--older-than days, defaulting to the session TTL), optionally narrowed
by a --match glob.`,
	RunE: runClean,
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "include sessions past the TTL")
	listCmd.Flags().StringVar(&listMatch, "match", "", "glob over session IDs, queries, and slugs")
	listCmd.Flags().IntVar(&listMaxAgeDays, "max-age-days", 0, "override the recency window in days")

	cleanCmd.Flags().IntVar(&cleanOlderThan, "older-than", 0, "remove sessions idle for more than this many days")
	cleanCmd.Flags().StringVar(&cleanMatch, "match", "", "glob over session IDs, queries, and slugs")

	rootCmd.AddCommand(statusCmd, listCmd, resumeCmd, pauseCmd, abortCmd, deleteCmd, cleanCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	return callDaemon("status", daemon.SessionParams{SessionID: args[0]})
}

func runList(cmd *cobra.Command, args []string) error {
	return callDaemon("list", daemon.ListParams{
		All:        listAll,
		Match:      listMatch,
		MaxAgeDays: listMaxAgeDays,
	})
}

func runResume(cmd *cobra.Command, args []string) error {
	return callDaemon("resume", daemon.SessionParams{SessionID: args[0]})
}

func runPause(cmd *cobra.Command, args []string) error {
	return callDaemon("pause", daemon.SessionParams{SessionID: args[0]})
}

func runAbort(cmd *cobra.Command, args []string) error {
	return callDaemon("abort", daemon.SessionParams{SessionID: args[0]})
}

func runDelete(cmd *cobra.Command, args []string) error {
	return callDaemon("delete", daemon.SessionParams{SessionID: args[0]})
}

func runClean(cmd *cobra.Command, args []string) error {
	return callDaemon("clean", daemon.CleanParams{
		OlderThanDays: cleanOlderThan,
		Match:         cleanMatch,
	})
}
