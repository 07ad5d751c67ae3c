// Command bimsync synchronizes the local BIM objective database with a
// remote system.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrsbim/bimsync/internal/config"
	"github.com/mrsbim/bimsync/internal/connection"
	_ "github.com/mrsbim/bimsync/internal/connection/blob"
	_ "github.com/mrsbim/bimsync/internal/connection/memory"
	"github.com/mrsbim/bimsync/internal/logging"
	"github.com/mrsbim/bimsync/internal/store"
)

var (
	configFile string
	v          *viper.Viper
	cfg        *config.Config
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "bimsync",
	Short: "Three-way synchronization of projects and objectives",
	Long: `bimsync reconciles the local database with a remote system.

Every record exists up to three times: the local row you edit, a mirror of
the last agreed state and the remote record. Changes on either side are
merged field by field against the mirror; when both sides changed a field
the more recent side wins.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		v = config.New()
		err := config.BindFlags(v, cmd.Flags(), map[string]string{
			config.KeyDatabasePath:  "db",
			config.KeyLogLevel:      "log-level",
			config.KeyProfile:       "profile",
			config.KeySyncUserID:    "user",
			config.KeySyncInterval:  "interval",
			config.KeySyncDebounce:  "debounce",
			config.KeyDashboardPort: "port",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cfg, err = config.Load(v, configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		logger, err = logging.New(cfg.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default .bimsync/bimsync.yaml)")
	rootCmd.PersistentFlags().String("db", "", "Local database path")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("profile", "", "Connection profile file")
	rootCmd.PersistentFlags().String("user", "", "User id owning the synchronization history")

	rootCmd.AddGroup(
		&cobra.Group{ID: "sync", Title: "Synchronization:"},
		&cobra.Group{ID: "setup", Title: "Setup:"},
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// openDatabase opens the configured database, creating it when needed.
func openDatabase() *store.DB {
	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
			os.Exit(1)
		}
	}
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
		os.Exit(1)
	}
	if err := db.InitSchema(); err != nil {
		_ = db.Close()
		fmt.Fprintf(os.Stderr, "Error initializing schema: %v\n", err)
		os.Exit(1)
	}
	return db
}

// closeDatabase closes db, logging a failed WAL checkpoint or close.
func closeDatabase(db *store.DB) {
	if err := db.Close(); err != nil {
		log := logger.Component("store")
		log.Warn().Err(err).Str("path", db.Path()).Msg("Failed to close database cleanly")
	}
}

// openConnection loads the connection profile and creates its connection.
func openConnection() (connection.Connection, connection.Info) {
	info, err := connection.LoadInfo(cfg.ProfilePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Fprintf(os.Stderr, "Run 'bimsync profile init' to create a profile\n")
		os.Exit(1)
	}
	conn, err := connection.New(info.Type)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v (registered: %v)\n", err, connection.RegisteredTypes())
		os.Exit(1)
	}
	return conn, info
}

// userID is the configured user, falling back to the profile's user.
func userID(info connection.Info) string {
	if cfg.UserID != "" {
		return cfg.UserID
	}
	return info.UserExternalID
}
