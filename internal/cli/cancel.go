package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel [id]",
	Short: "Cancel a running prediction",
	Args:  cobra.ExactArgs(1),
	RunE:  runCancel,
}

func init() {
	rootCmd.AddCommand(cancelCmd)
}

func runCancel(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	p, err := app.Lifecycle().Cancel(ctx, args[0])
	if err != nil {
		return fmt.Errorf("cancel prediction %s: %w", args[0], err)
	}
	printJSON(p)
	return nil
}
