package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete finished predictions older than storage.retention",
	RunE:  runPrune,
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	n, err := app.Pruner().PruneOnce(ctx)
	if err != nil {
		return fmt.Errorf("prune predictions: %w", err)
	}
	fmt.Printf("Pruned %d predictions\n", n)
	return nil
}
