package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/dashboard"
	"github.com/lherron/pipeboard/internal/render"
)

// exitError returns an error that will cause the CLI to exit with the given code
func exitError(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// ExitError carries a process exit code alongside the error.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// formatFlags are the shared output selection flags.
type formatFlags struct {
	json      bool
	ndjson    bool
	yaml      bool
	tsv       bool
	porcelain bool
}

func (f *formatFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&f.json, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&f.ndjson, "ndjson", false, "Output as newline-delimited JSON")
	cmd.Flags().BoolVar(&f.yaml, "yaml", false, "Output as YAML")
	cmd.Flags().BoolVar(&f.tsv, "tsv", false, "Output as tab-separated values")
	cmd.Flags().BoolVar(&f.porcelain, "porcelain", false, "Stable machine-readable output")
}

func (f *formatFlags) format() render.Format {
	switch {
	case f.json:
		return render.FormatJSON
	case f.ndjson:
		return render.FormatNDJSON
	case f.yaml:
		return render.FormatYAML
	case f.tsv:
		return render.FormatTSV
	default:
		return render.FormatTable
	}
}

func (f *formatFlags) renderer(w io.Writer) *render.Renderer {
	return render.NewRenderer(w, render.Options{Format: f.format(), Porcelain: f.porcelain})
}

// postAction sends one action through the dashboard write entry point and
// prints the response. An error payload becomes the command's error.
func postAction(cmd *cobra.Command, svc *dashboard.Service, body map[string]any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	resp := svc.Post(commandContext(cmd), data)
	if msg, failed := resp.Error(); failed {
		return exitError(1, fmt.Errorf("%s", msg))
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(resp)
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, arg string) ([]byte, error) {
	if arg == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", arg, err)
	}
	return data, nil
}
