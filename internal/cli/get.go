package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
)

var getCached bool

var getCmd = &cobra.Command{
	Use:   "get [id]",
	Short: "Show the current state of a prediction",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func init() {
	getCmd.Flags().BoolVar(&getCached, "cached", false, "read the stored snapshot instead of calling the API")
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	if getCached {
		s, source, err := app.Lookup(ctx, args[0])
		if err != nil {
			return fmt.Errorf("read stored prediction %s: %w", args[0], err)
		}
		slog.Debug("Read stored snapshot", "id", s.ID, "source", source)
		printJSON(s)
		return nil
	}

	p, err := app.Lifecycle().Fetch(ctx, args[0])
	if err != nil {
		return fmt.Errorf("get prediction %s: %w", args[0], err)
	}
	printJSON(p)
	return nil
}
