package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rpattn/maintops/internal/export"
)

// ExportCmd writes the equipment list to a local file.
func ExportCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export data to CSV or XLSX",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "equipment <file.csv|file.xlsx>",
		Short: "Export the equipment inventory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()
			return runExport(cmd.Context(), cmd.OutOrStdout(), export.NewService(store.Equipment()), args[0])
		},
	})
	return cmd
}

func runExport(ctx context.Context, out io.Writer, service *export.Service, path string) error {
	format, err := export.ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	n, err := service.Equipment(ctx, format, file)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", path, closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	okColor.Fprintf(out, "✓ wrote %d equipment rows to %s\n", n, path)
	return nil
}
