package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/replikit/internal/core/domain"
)

var (
	historyLimit   int
	historyPending bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored predictions",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "rows to show (0 = all)")
	historyCmd.Flags().BoolVar(&historyPending, "pending", false, "only predictions that have not finished")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	list := app.Repository().List
	if historyPending {
		list = app.Repository().ListPending
	}
	snapshots, err := list(ctx, historyLimit)
	if err != nil {
		return fmt.Errorf("list predictions: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tVERSION\tPREDICT TIME\tUPDATED")
	for _, s := range snapshots {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Status, shortVersion(s.Version), predictTime(s), s.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func shortVersion(v string) string {
	if len(v) > 12 {
		return v[:12]
	}
	return v
}

func predictTime(s *domain.Snapshot) string {
	if s.PredictTime == nil {
		return "-"
	}
	return fmt.Sprintf("%.2fs", *s.PredictTime)
}
