package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/connection/blob"
	"github.com/mrsbim/bimsync/internal/daemon"
	"github.com/mrsbim/bimsync/internal/dashboard"
	bimsync "github.com/mrsbim/bimsync/internal/sync"
	"github.com/mrsbim/bimsync/internal/ui"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Synchronize periodically and on remote changes",
	Long: `Run synchronizations in the background until interrupted.

A run starts immediately, then every --interval. With a folder remote the
daemon also watches the remote directory and runs --debounce after the last
change. Runs are broadcast on a WebSocket dashboard:

  ws://localhost:8080/ws   sync_started, sync_progress, sync_failure,
                           sync_complete, stats

Examples:
  bimsync daemon
  bimsync daemon --interval 1m --port 9000
  bimsync daemon --no-dashboard`,
	Run: func(cmd *cobra.Command, args []string) {
		noDashboard, _ := cmd.Flags().GetBool("no-dashboard")

		db := openDatabase()
		defer closeDatabase(db)
		conn, info := openConnection()

		daemonLogger := logger.Component("daemon")
		syncLogger := logger.Component("sync")

		var notifier daemon.Notifier
		if !noDashboard {
			dashLogger := logger.Component("dashboard")
			server := dashboard.NewServer(&dashboard.Config{Port: cfg.DashboardPort, Logger: &dashLogger})
			if err := server.Start(); err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to start dashboard: %v\n", err)
				os.Exit(1)
			}
			defer server.Stop()
			notifier = dashboard.NewHandler(server, &dashLogger)
			fmt.Printf("%s Dashboard on ws://localhost:%d/ws\n", ui.RenderAccent("📡"), cfg.DashboardPort)
		}

		watch, err := watchDirs(info)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		d, err := daemon.New(bimsync.New(db, &bimsync.Options{Logger: &syncLogger}), db, conn, info, &daemon.Config{
			Interval:  cfg.Interval,
			Debounce:  cfg.Debounce,
			UserID:    userID(info),
			WatchDirs: watch,
			Notifier:  notifier,
			Logger:    &daemonLogger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		fmt.Printf("%s Daemon running every %v", ui.RenderPass("✓"), cfg.Interval)
		if len(watch) > 0 {
			fmt.Printf(", watching %s", filepath.Dir(watch[0]))
		}
		fmt.Println("\nPress Ctrl+C to stop...")

		if err := d.Start(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Daemon stopped after %d runs\n", d.Runs())
	},
}

// watchDirs returns the document directories of a folder remote, creating
// them so they can be watched before the first push.
func watchDirs(info connection.Info) ([]string, error) {
	if info.Type != blob.FolderType {
		return nil, nil
	}
	dirs := blob.FolderDirs(info.Value("root"))
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return dirs, nil
}

func init() {
	daemonCmd.Flags().Duration("interval", 0, "Time between periodic runs (default 5m)")
	daemonCmd.Flags().Duration("debounce", 0, "Quiet time after a remote change before a run (default 2s)")
	daemonCmd.Flags().IntP("port", "p", 0, "Dashboard port (default 8080)")
	daemonCmd.Flags().Bool("no-dashboard", false, "Do not start the WebSocket dashboard")

	rootCmd.AddCommand(daemonCmd)
}
