// Package cli provides the command-line interface for the analysis engine.
package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"trendscope/internal/config"
	"trendscope/internal/logging"
	"trendscope/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Store  store.DataStore
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	dataStore, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, import/reload unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Str("path", cfg.Store.Path).Msg("SQLite store initialized")
	}

	rootCmd := &cobra.Command{
		Use:     "trendscope",
		Short:   "Statistical price-channel analysis",
		Long:    "trendscope fits regression trend channels over price series,\nsearches for the channel parameters that best explain price action,\nand decomposes volume by price level.",
		Version: Version,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Store != nil {
				app.Store.Close()
			}
		},
	}

	rootCmd.PersistentFlags().Bool("json", false, "output machine-readable JSON")
	rootCmd.PersistentFlags().String("period", "1Y", "chart period (1D, 7D, 1M, 3M, 6M, 1Y, 3Y, 5Y)")

	rootCmd.AddCommand(newImportCmd(app))
	rootCmd.AddCommand(newAnalyzeCmd(app))
	rootCmd.AddCommand(newOptimizeCmd(app))
	rootCmd.AddCommand(newChannelsCmd(app))

	return rootCmd
}

// NewLoggerFromConfig builds the application logger.
func NewLoggerFromConfig(cfg *config.Config) zerolog.Logger {
	return logging.NewLoggerWithConfig(logging.LogConfig{
		Level:      cfg.Logging.Level,
		Console:    cfg.Logging.Console,
		File:       cfg.Logging.File,
		FilePath:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
	})
}
