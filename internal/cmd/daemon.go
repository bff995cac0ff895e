package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/batonworks/baton/internal/daemon"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the warm background daemon",
	Long: `The daemon keeps catalog, session store, and structure cache resident
between CLI calls. Normally it is spawned on demand and exits on its
own after the idle timeout; these commands exist for inspection and
manual control.`,
}

var (
	daemonRunBaseDir string
	daemonRunSocket  string
)

var daemonRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon in the foreground",
	Long: `Run the daemon in the foreground until interrupted, shut down over the
socket, or idle past the configured timeout. This is also the entry
point auto-start uses when spawning the daemon in the background.`,
	RunE: runDaemonRun,
}

var daemonStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running",
	RunE:  runDaemonStatus,
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running daemon",
	RunE:  runDaemonStop,
}

var daemonRestartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Rebuild the daemon's warm state in place",
	Long: `Ask the daemon to rebuild its resident state (catalog, store, structure
cache) without dropping the socket. Useful after editing configuration
or structure artifacts by hand.`,
	RunE: runDaemonRestart,
}

func init() {
	daemonRunCmd.Flags().StringVar(&daemonRunBaseDir, "base-dir", "", "override the base data directory")
	daemonRunCmd.Flags().StringVar(&daemonRunSocket, "socket", "", "override the socket path")

	daemonCmd.AddCommand(daemonRunCmd, daemonStatusCmd, daemonStopCmd, daemonRestartCmd)
	rootCmd.AddCommand(daemonCmd)
}

func runDaemonRun(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Close()

	if daemonRunBaseDir != "" {
		cfg.Paths.BaseDir = daemonRunBaseDir
	}
	if daemonRunSocket != "" {
		cfg.Daemon.Socket = daemonRunSocket
	}

	srv, err := daemon.NewServer(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return srv.Run(ctx)
}

func runDaemonStatus(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Close()

	client := daemon.NewClient(cfg, log)
	client.DisableAutoStart()
	if !client.Running() {
		return emit(map[string]any{"running": false, "socket": client.Socket()})
	}

	var health daemon.HealthResult
	if err := client.Call("health", nil, &health); err != nil {
		return err
	}
	return emit(map[string]any{"running": true, "socket": client.Socket(), "health": health})
}

func runDaemonStop(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Close()

	client := daemon.NewClient(cfg, log)
	client.DisableAutoStart()
	if !client.Running() {
		return emit(map[string]any{"running": false, "socket": client.Socket()})
	}
	if err := client.Call("shutdown", nil, nil); err != nil {
		return err
	}
	return emit(map[string]string{"status": "stopped"})
}

func runDaemonRestart(cmd *cobra.Command, args []string) error {
	return callDaemon("restart", nil)
}
