package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/agentic-research/tangodb/internal/config"
	"github.com/agentic-research/tangodb/internal/datasource"
	"github.com/agentic-research/tangodb/internal/ingest"
	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	identity   string
	logLevel   string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to an HCL configuration file")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db-path", "d", "", "Directory of YAML documents to load")
	rootCmd.PersistentFlags().StringVar(&identity, "identity", config.DefaultIdentity, "Database instance name (sys/database/<identity>)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:           "tangodb",
	Short:         "tangodb: a Tango configuration database over YAML documents",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "tangodb: %v\n", err)
		os.Exit(1)
	}
}

// settings resolves the configuration file and lets explicit flags win.
func settings(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}
	flags := cmd.Flags()
	if flags.Changed("db-path") {
		cfg.DBPath = dbPath
	}
	if flags.Changed("identity") {
		cfg.Identity = identity
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// setup resolves the configuration and installs the logger.
func setup(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := settings(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return config.Config{}, nil, err
	}
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// loadForest reads the raw documents of cfg.DBPath. Without a path the
// forest is empty and only the bootstrap entries exist. Files that failed to
// decode are returned as skipped; err is set only when nothing could load.
func loadForest(ctx context.Context, cfg config.Config, logger *slog.Logger) (forest []any, skipped []error, err error) {
	if cfg.DBPath == "" {
		logger.Warn("no db path configured, starting empty")
		return nil, nil, nil
	}
	forest, err = ingest.LoadDir(ctx, cfg.DBPath, ingest.WithLogger(logger))
	if skipped = ingest.FileErrors(err); skipped != nil {
		return forest, skipped, nil
	}
	return forest, nil, err
}

// loadSource loads and classifies cfg.DBPath. Skipped files become problems
// of the source.
func loadSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (*datasource.Source, error) {
	forest, skipped, err := loadForest(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return datasource.New(forest, cfg.Identity,
		datasource.WithLogger(logger),
		datasource.WithProblems(skipped...)), nil
}

// reloadSource is loadSource for a running database: a tree with any file
// that fails to decode is rejected so the current source stays in place.
func reloadSource(ctx context.Context, cfg config.Config, logger *slog.Logger) (*datasource.Source, error) {
	forest, skipped, err := loadForest(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if len(skipped) > 0 {
		return nil, errors.Join(skipped...)
	}
	return datasource.New(forest, cfg.Identity, datasource.WithLogger(logger)), nil
}
