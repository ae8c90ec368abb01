package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rpattn/maintops/internal/checklist"
	"github.com/rpattn/maintops/internal/repository"
	"github.com/rpattn/maintops/internal/workorders"
)

// ChecklistCmd groups checklist item operations.
func ChecklistCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Work with work order checklists",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "toggle <item-id>",
		Short: "Flip the completion flag of a checklist item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid item id %q: %w", args[0], err)
			}
			store, closeStore, err := openStore(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer closeStore()

			service, err := workorders.NewService(store)
			if err != nil {
				return err
			}
			return runToggle(cmd.Context(), cmd.OutOrStdout(), store, service, itemID)
		},
	})
	return cmd
}

// runToggle loads the item's whole checklist onto a board so the local view
// and the printed progress match what a client would show.
func runToggle(ctx context.Context, out io.Writer, store repository.Store, persister checklist.Persister, itemID uuid.UUID) error {
	item, err := store.Checklist().GetByID(ctx, itemID)
	if err != nil {
		return err
	}
	items, err := store.Checklist().ListByWorkOrder(ctx, item.WorkOrderID)
	if err != nil {
		return err
	}

	board := checklist.NewBoard(items, persister, checklist.NotifierFunc(func(notice checklist.Notice) {
		errColor.Fprintf(out, "✗ %s: %v\n", notice.Message, notice.Err)
	}))

	completed, err := board.Toggle(ctx, itemID)
	if err != nil {
		return err
	}

	mark := dimColor.Sprint("[ ]")
	if completed {
		mark = okColor.Sprint("[x]")
	}
	fmt.Fprintf(out, "%s %s\n", mark, item.Description)

	progress := board.Progress()
	summary := fmt.Sprintf("%d/%d done, %d required pending", progress.Completed, progress.Total, progress.RequiredPending)
	if progress.ReadyForClosure {
		okColor.Fprintln(out, summary)
	} else {
		warnColor.Fprintln(out, summary)
	}
	return nil
}
