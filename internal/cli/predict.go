package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vietddude/replikit/internal/core/value"
	"github.com/vietddude/replikit/internal/prediction"
)

var (
	predictInputs    []string
	predictInputJSON string
	predictWebhook   string
	predictNoWait    bool
)

var predictCmd = &cobra.Command{
	Use:   "predict [version]",
	Short: "Create a prediction and wait for its result",
	Example: `  replikit predict 5c7d5dc6dd8bf75c1acaa8565735e7986bc5b66206b55cca93cb72c9bf15ccaa \
    -i prompt="an astronaut riding a horse" -i num_outputs=2`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringArrayVarP(&predictInputs, "input", "i", nil, "input field as key=value; JSON values are decoded")
	predictCmd.Flags().StringVar(&predictInputJSON, "input-json", "", "whole input as a JSON object")
	predictCmd.Flags().StringVar(&predictWebhook, "webhook", "", "URL notified by the API on completion")
	predictCmd.Flags().BoolVar(&predictNoWait, "no-wait", false, "return right after creating the prediction")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	input, err := parseInputs(predictInputJSON, predictInputs)
	if err != nil {
		return fmt.Errorf("invalid input: %w", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	app, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	expect := prediction.ExpectResult(app.Strategy())
	if predictNoWait {
		expect = prediction.ExpectNone()
	}

	p, err := app.Lifecycle().CreateAndAwait(ctx, prediction.Request{
		Version: args[0],
		Input:   input,
		Webhook: predictWebhook,
	}, expect)
	if p != nil {
		printJSON(p)
	}
	if err != nil {
		return fmt.Errorf("prediction did not succeed: %w", err)
	}
	return nil
}

// parseInputs merges a JSON object and key=value pairs into one input map.
// Pair values that parse as JSON keep their type; anything else is a string.
func parseInputs(raw string, pairs []string) (value.Value, error) {
	fields := make(map[string]any)

	if raw != "" {
		if err := decodeJSON(raw, &fields); err != nil {
			return value.Value{}, fmt.Errorf("input-json: %w", err)
		}
	}

	for _, pair := range pairs {
		key, val, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return value.Value{}, fmt.Errorf("expected key=value, got %q", pair)
		}
		var decoded any
		if err := decodeJSON(val, &decoded); err != nil {
			decoded = val
		}
		fields[key] = decoded
	}

	return value.Of(fields), nil
}

func decodeJSON(s string, v any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return fmt.Errorf("trailing data after JSON value")
	}
	return nil
}
