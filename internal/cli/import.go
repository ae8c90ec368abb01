package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rpattn/maintops/internal/config"
	"github.com/rpattn/maintops/internal/ingestion"
)

// ImportCmd validates and optionally commits a bulk upload file.
func ImportCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Validate or load equipment and annual plan files",
		Long: `Validate or load equipment and annual plan files (.csv or .xlsx).

Without --commit only the preview and error report are printed.

Examples:
  maintops import equipment equipos.csv
  maintops import plan plan_2024.xlsx --commit`,
	}

	for _, kind := range []string{"equipment", "plan"} {
		var commit bool
		sub := &cobra.Command{
			Use:   kind + " <file>",
			Short: fmt.Sprintf("Import a %s file", kind),
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cfg, err := config.Load(opts.ConfigPath)
				if err != nil {
					return err
				}
				store, closeStore, err := openStore(cmd.Context(), opts)
				if err != nil {
					return err
				}
				defer closeStore()

				service := ingestion.NewService(store, ingestion.WithPreviewLimit(cfg.Import.PreviewLimit))
				return runImport(cmd.Context(), cmd.OutOrStdout(), service, cmd.Name(), args[0], commit)
			},
		}
		sub.Flags().BoolVar(&commit, "commit", false, "write the valid rows")
		cmd.AddCommand(sub)
	}
	return cmd
}

func runImport(ctx context.Context, out io.Writer, service *ingestion.Service, kind, path string, commit bool) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()
	upload := ingestion.Upload{FileName: filepath.Base(path), Data: file}

	if commit {
		var summary ingestion.CommitSummary
		if kind == "plan" {
			summary, err = service.CommitPlan(ctx, upload)
		} else {
			summary, err = service.CommitEquipment(ctx, upload)
		}
		if err != nil {
			return err
		}
		printRowErrors(out, summary.Errors)
		okColor.Fprintf(out, "✓ inserted %d of %d rows from %s\n", summary.Inserted, summary.TotalRows, summary.FileName)
		return nil
	}

	if kind == "plan" {
		preview, err := service.PreviewPlan(ctx, upload)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "AÑO\tACTIVIDAD\tEQUIPO\tRESPONSABLE\tINICIO\tTÉRMINO")
		for _, a := range preview.Preview {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", a.Year, a.Activity, a.Equipment, a.Responsible,
				a.StartDate.Format("2006-01-02"), a.EndDate.Format("2006-01-02"))
		}
		_ = tw.Flush()
		printRowErrors(out, preview.Errors)
		printTotals(out, preview.TotalRows, preview.ValidRows, preview.InvalidRows)
		return nil
	}

	preview, err := service.PreviewEquipment(ctx, upload)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NOMBRE\tTIPO\tMARCA\tMODELO\tSERIE\tTRAMO")
	for _, e := range preview.Preview {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", e.Name, e.Type, e.Brand, e.Model, e.SerialNumber, e.SegmentName)
	}
	_ = tw.Flush()
	printRowErrors(out, preview.Errors)
	printTotals(out, preview.TotalRows, preview.ValidRows, preview.InvalidRows)
	return nil
}

func printRowErrors(out io.Writer, rows []ingestion.RowError) {
	for _, row := range rows {
		errColor.Fprintf(out, "✗ row %d\n", row.Row)
		for _, message := range row.Messages {
			fmt.Fprintf(out, "    %s\n", message)
		}
	}
}

func printTotals(out io.Writer, total, valid, invalid int) {
	summary := fmt.Sprintf("%d rows: %d valid, %d invalid", total, valid, invalid)
	if invalid > 0 {
		warnColor.Fprintln(out, summary)
		return
	}
	okColor.Fprintln(out, summary)
}
