package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"mycelica/aka/internal/config"
	"mycelica/aka/internal/history"
	"mycelica/aka/internal/logging"
)

var (
	dbPath     string
	configPath string
	logLevel   string
)

var (
	cfg      *config.Config
	settings *viper.Viper
)

var rootCmd = &cobra.Command{
	Use:           "aka",
	Short:         "Hostmask identity resolution and message history",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, v, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		level, err := config.ParseLevel(loaded.Log.Level)
		if err != nil {
			return err
		}
		logging.Setup(os.Stderr, level, loaded.Log.Color)
		cfg, settings = loaded, v
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the history database")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (toml, yaml or json)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// DiscoverDB finds the database path using priority: flag > config/env > walk-up > default
func DiscoverDB() string {
	// 1. CLI flag
	if dbPath != "" {
		return dbPath
	}

	// 2. Config file or AKA_DB_PATH
	if settings.InConfig("db.path") || os.Getenv(config.EnvPrefix+"_DB_PATH") != "" {
		return cfg.DB.Path
	}

	// 3. Walk up from CWD looking for an existing database
	name := filepath.Base(cfg.DB.Path)
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	// 4. Created next to the caller
	return name
}

// OpenEngine discovers the database and opens a history engine over it
func OpenEngine() (*history.Engine, error) {
	trusted, err := cfg.TrustedCloak()
	if err != nil {
		return nil, err
	}
	return history.Open(DiscoverDB(), history.Options{
		CacheTTL:       cfg.Cache.TTL,
		TrustedCloak:   trusted,
		LegacyAncestor: cfg.Graph.LegacyAncestor,
	})
}

// ResolveAccount finds an account by numeric id, or by the most recent
// hostmask of a nick.
func ResolveAccount(e *history.Engine, reference string) (int64, error) {
	// 1. Account id
	if id, err := strconv.ParseInt(reference, 10, 64); err == nil {
		if _, ok := e.LookupByID(id); ok {
			return id, nil
		}
		return 0, fmt.Errorf("account not found: %d", id)
	}

	// 2. Nick
	if id, _, ok := e.LookupByNick(reference); ok {
		return id, nil
	}
	return 0, fmt.Errorf("no account for nick or id: %s", reference)
}

func truncMask(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// cut on a rune boundary
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max] + "..."
}
