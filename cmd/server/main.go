package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/rpattn/maintops/internal/cli"
)

func main() {
	opts := &cli.Options{}
	rootCmd := &cobra.Command{
		Use:   "maintops",
		Short: "Maintenance management backend",
		Long: `maintops serves the equipment inventory, work orders, personnel and
reporting API, and bundles the maintenance tasks that run against the same
database: migrations, bulk imports, exports and checklist updates.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", ".", "directory containing config.yaml")

	rootCmd.AddCommand(cli.ServeCmd(opts))
	rootCmd.AddCommand(cli.MigrateCmd(opts))
	rootCmd.AddCommand(cli.ImportCmd(opts))
	rootCmd.AddCommand(cli.ExportCmd(opts))
	rootCmd.AddCommand(cli.ChecklistCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
