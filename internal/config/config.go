// Package config loads bimsync settings from config files, the environment
// and command-line flags through viper.
//
// Lookup order (later wins): defaults, config file, BIMSYNC_* environment
// variables, bound flags. The config file is bimsync.yaml (or .toml) in
// ./.bimsync/ or $HOME/.config/bimsync/.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/mrsbim/bimsync/internal/logging"
)

// Keys of the settings.
const (
	KeyDatabasePath   = "database.path"
	KeyLogLevel       = "log.level"
	KeyLogFile        = "log.file"
	KeyLogMaxSizeMB   = "log.max_size_mb"
	KeyLogMaxBackups  = "log.max_backups"
	KeyLogMaxAgeDays  = "log.max_age_days"
	KeySyncUserID     = "sync.user_id"
	KeySyncInterval   = "sync.interval"
	KeySyncDebounce   = "sync.debounce"
	KeyProfile        = "connection.profile"
	KeyDashboardPort  = "dashboard.port"
	EnvPrefix         = "BIMSYNC"
	DirName           = ".bimsync"
	FileName          = "bimsync"
	DefaultDatabase   = "bimsync.db"
	DefaultProfile    = "connection.yaml"
	DefaultPort       = 8080
	DefaultInterval   = 5 * time.Minute
	DefaultDebounce   = 2 * time.Second
	defaultLogMaxSize = 10
)

// Config is the resolved configuration of one process.
type Config struct {
	DatabasePath  string
	ProfilePath   string
	UserID        string
	Interval      time.Duration
	Debounce      time.Duration
	DashboardPort int
	Log           logging.Config

	// File is the config file that was read, if any.
	File string
}

// New returns a viper instance with defaults, search paths and environment
// binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyDatabasePath, filepath.Join(DirName, DefaultDatabase))
	v.SetDefault(KeyProfile, filepath.Join(DirName, DefaultProfile))
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogMaxSizeMB, defaultLogMaxSize)
	v.SetDefault(KeyLogMaxBackups, 3)
	v.SetDefault(KeyLogMaxAgeDays, 28)
	v.SetDefault(KeySyncInterval, DefaultInterval)
	v.SetDefault(KeySyncDebounce, DefaultDebounce)
	v.SetDefault(KeyDashboardPort, DefaultPort)

	v.SetConfigName(FileName)
	v.AddConfigPath(DirName)
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", FileName))
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds command-line flags to keys. Flags that are not defined on
// the set are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, bindings map[string]string) error {
	for key, name := range bindings {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

// Load reads the config file (when present) and resolves the settings.
// An explicit file that cannot be read is an error; a missing default file
// is not.
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		DatabasePath:  v.GetString(KeyDatabasePath),
		ProfilePath:   v.GetString(KeyProfile),
		UserID:        v.GetString(KeySyncUserID),
		Interval:      v.GetDuration(KeySyncInterval),
		Debounce:      v.GetDuration(KeySyncDebounce),
		DashboardPort: v.GetInt(KeyDashboardPort),
		Log: logging.Config{
			Level:      v.GetString(KeyLogLevel),
			File:       v.GetString(KeyLogFile),
			MaxSizeMB:  v.GetInt(KeyLogMaxSizeMB),
			MaxBackups: v.GetInt(KeyLogMaxBackups),
			MaxAgeDays: v.GetInt(KeyLogMaxAgeDays),
			Console:    true,
		},
		File: v.ConfigFileUsed(),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved settings.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("%s is required", KeyDatabasePath)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("%s must be positive (got %v)", KeySyncInterval, c.Interval)
	}
	if c.Debounce < 0 {
		return fmt.Errorf("%s must not be negative (got %v)", KeySyncDebounce, c.Debounce)
	}
	if c.DashboardPort < 0 || c.DashboardPort > 65535 {
		return fmt.Errorf("%s out of range: %d", KeyDashboardPort, c.DashboardPort)
	}
	return nil
}
