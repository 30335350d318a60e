package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"docflow/internal/bootstrap"
	"docflow/internal/config"
	"docflow/internal/database"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDatabase(func(db *database.Database, cfg *config.Config) error {
				applied, err := db.RunMigrations(cmd.Context(), bootstrap.MigrationsFS(&cfg.Database))
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(applied) == 0 {
					fmt.Fprintln(out, "Database is up to date")
					return nil
				}
				for _, v := range applied {
					fmt.Fprintf(out, "Applied %s\n", v)
				}
				return nil
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withDatabase(func(db *database.Database, cfg *config.Config) error {
				status, err := database.NewMigrationExecutor(db.DB).Status(cmd.Context(), bootstrap.MigrationsFS(&cfg.Database))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderMigrationStatus(status))
				return nil
			})
		},
	})

	return cmd
}
