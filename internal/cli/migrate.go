package cli

import (
	"github.com/spf13/cobra"

	"github.com/rpattn/maintops/internal/config"
	"github.com/rpattn/maintops/internal/db"
)

// MigrateCmd applies or reverts the embedded schema migrations.
func MigrateCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConfig, err := config.LoadDBConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := db.RunMigrations(dbConfig); err != nil {
				return err
			}
			okColor.Fprintln(cmd.OutOrStdout(), "✓ schema is up to date")
			return nil
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Revert the most recent migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbConfig, err := config.LoadDBConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			if err := db.RollbackMigrations(dbConfig, steps); err != nil {
				return err
			}
			warnColor.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
			return nil
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to revert")
	cmd.AddCommand(down)

	return cmd
}
