package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vietddude/replikit/internal/control"
)

var (
	resumeConcurrency int
	resumeLimit       int
	resumeListen      string
	resumeServe       bool
)

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Wait for stored predictions that have not finished",
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().IntVar(&resumeConcurrency, "concurrency", 4, "predictions polled in parallel")
	resumeCmd.Flags().IntVar(&resumeLimit, "limit", 0, "max predictions to resume (0 = all)")
	resumeCmd.Flags().StringVar(&resumeListen, "listen", "", "serve /health and /metrics on this address, e.g. :9090")
	resumeCmd.Flags().BoolVar(&resumeServe, "serve", false, "serve /health and /metrics on server.port")
	rootCmd.AddCommand(resumeCmd)
}

func runResume(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	addr := resumeListen
	if addr == "" && resumeServe {
		addr = app.ServerAddr()
	}
	if addr != "" {
		app.StartServer(ctx, addr)
	}

	report, err := app.Resume(ctx, control.ResumeConfig{
		Concurrency: resumeConcurrency,
		Limit:       resumeLimit,
	})
	printJSON(report)
	if err != nil {
		return fmt.Errorf("resume interrupted: %w", err)
	}
	return nil
}
