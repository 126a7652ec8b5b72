package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var forgetCmd = &cobra.Command{
	Use:   "forget [id]",
	Short: "Drop a prediction from the Redis cache and pending index",
	Args:  cobra.ExactArgs(1),
	RunE:  runForget,
}

func init() {
	rootCmd.AddCommand(forgetCmd)
}

func runForget(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	cache := app.Cache()
	if cache == nil {
		return errors.New("redis is not configured")
	}
	if err := cache.Forget(ctx, args[0]); err != nil {
		return fmt.Errorf("forget prediction %s: %w", args[0], err)
	}
	fmt.Printf("Forgot prediction %s\n", args[0])
	return nil
}
