package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docflow/internal/bootstrap"
	"docflow/internal/config"
	"docflow/internal/database"
	"docflow/internal/logger"
)

type commandContext struct {
	envFile  *string
	logLevel *string
	cfg      *config.Config
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	if c.envFile != nil && *c.envFile != "" {
		if err := godotenv.Load(*c.envFile); err != nil {
			return nil, fmt.Errorf("load env file: %w", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if c.logLevel != nil && *c.logLevel != "" {
		level = *c.logLevel
	}
	logger.Setup(logger.Config{Level: level, Format: "text", Output: os.Stderr})
	c.cfg = cfg
	return cfg, nil
}

func (c *commandContext) withDatabase(fn func(db *database.Database, cfg *config.Config) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}()
	return fn(db, cfg)
}

func (c *commandContext) withApp(cmd *cobra.Command, fn func(app *bootstrap.App) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	app, err := bootstrap.New(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func newRootCommand() *cobra.Command {
	var envFile string
	var logLevel string

	ctx := &commandContext{envFile: &envFile, logLevel: &logLevel}

	rootCmd := &cobra.Command{
		Use:           "docflowctl",
		Short:         "Docflow operator CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Load environment variables from this file first")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override LOG_LEVEL")

	rootCmd.AddCommand(newMigrateCommand(ctx))
	rootCmd.AddCommand(newShowCommand(ctx))
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newArchiveCommand(ctx))
	rootCmd.AddCommand(newTokenCommand(ctx))
	rootCmd.AddCommand(newWorkflowCommand())

	return rootCmd
}
