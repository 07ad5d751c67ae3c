package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrsbim/bimsync/internal/config"
	bimsync "github.com/mrsbim/bimsync/internal/sync"
	"github.com/mrsbim/bimsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Run one synchronization",
	Long: `Synchronize projects and objectives with the remote system.

By default only remote records changed since the last fully successful run
are fetched. --since overrides that date, --full fetches everything.

Examples:
  bimsync sync
  bimsync sync --since "2 days ago"
  bimsync sync --full --user alice`,
	Run: func(cmd *cobra.Command, args []string) {
		sinceFlag, _ := cmd.Flags().GetString("since")
		full, _ := cmd.Flags().GetBool("full")

		db := openDatabase()
		defer closeDatabase(db)
		conn, info := openConnection()
		user := userID(info)

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		run := bimsync.RunConfig{UserID: user}
		switch {
		case full:
		case sinceFlag != "":
			since, err := config.ParseSince(sinceFlag, time.Now())
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: --since: %v\n", err)
				os.Exit(1)
			}
			run.Date = &since
		case user != "":
			since, err := db.LastSynchronizationContext(ctx, user)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading synchronization history: %v\n", err)
				os.Exit(1)
			}
			run.Date = since
		}

		var progress bimsync.Progress
		if ui.IsTerminal(os.Stdout) {
			progress = bimsync.ProgressFunc(func(f float64) {
				fmt.Printf("\r   %3.0f%%", f*100)
			})
		}

		syncLogger := logger.Component("sync")
		synchronizer := bimsync.New(db, &bimsync.Options{Logger: &syncLogger})

		if run.Date != nil {
			fmt.Printf("%s Synchronizing changes since %s...\n", ui.RenderAccent("🔄"), run.Date.Format(time.RFC3339))
		} else {
			fmt.Printf("%s Synchronizing everything...\n", ui.RenderAccent("🔄"))
		}
		start := time.Now()
		results, err := synchronizer.Synchronize(ctx, run, conn, info, progress)
		if progress != nil {
			fmt.Println()
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			printResults(results)
			os.Exit(1)
		}

		if len(results) > 0 {
			printResults(results)
			os.Exit(1)
		}

		if user != "" {
			if err := db.RecordSynchronizationContext(ctx, user, start); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
			}
		}
		fmt.Printf("%s Synchronized in %v\n", ui.RenderPass("✓"), time.Since(start).Round(time.Millisecond))
	},
}

func printResults(results []bimsync.Result) {
	if len(results) == 0 {
		return
	}
	fmt.Printf("\n%s %d failed:\n", ui.RenderFail("✗"), len(results))
	for _, r := range results {
		fmt.Printf("   %s\n", r)
	}
	fmt.Println()
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show local database and synchronization status",
	Run: func(cmd *cobra.Command, args []string) {
		if _, err := os.Stat(cfg.DatabasePath); os.IsNotExist(err) {
			fmt.Printf("\n%s No database at %s\n", ui.RenderWarn("⚠"), cfg.DatabasePath)
			fmt.Printf("   Run 'bimsync sync' to create it\n\n")
			return
		}

		db := openDatabase()
		defer closeDatabase(db)
		ctx := cmd.Context()

		stats, err := db.StatsContext(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("\n%s\n", ui.RenderAccent("bimsync status"))
		fmt.Printf("   Database:   %s\n", cfg.DatabasePath)
		fmt.Printf("   Projects:   %d (%d mirrored, %d never synchronized)\n",
			stats.Projects, stats.ProjectMirrors, stats.UnsyncedProjects)
		fmt.Printf("   Objectives: %d (%d mirrored, %d never synchronized)\n",
			stats.Objectives, stats.ObjectiveMirrors, stats.UnsyncedObjective)
		fmt.Printf("   Items:      %d\n", stats.Items)
		fmt.Printf("   BIM:        %d\n", stats.BimElements)

		if cfg.UserID != "" {
			last, err := db.LastSynchronizationContext(ctx, cfg.UserID)
			switch {
			case err != nil:
				fmt.Printf("   Last sync:  %s\n", ui.RenderWarn(err.Error()))
			case last == nil:
				fmt.Printf("   Last sync:  %s\n", ui.RenderMuted("never"))
			default:
				fmt.Printf("   Last sync:  %s\n", last.Local().Format(time.RFC1123))
			}
		}
		fmt.Println()
	},
}

func init() {
	syncCmd.Flags().String("since", "", `Fetch remote changes since this time ("2 days ago", RFC 3339)`)
	syncCmd.Flags().Bool("full", false, "Fetch every remote record")
	syncCmd.MarkFlagsMutuallyExclusive("since", "full")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(statusCmd)
}
