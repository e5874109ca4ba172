// Package cli implements the ledger command line: parse, run, review and watch.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/FACorreiaa/ledger-triage/pkg/config"
	"github.com/FACorreiaa/ledger-triage/pkg/logger"
)

// Exit codes.
const (
	ExitClean  = 0
	ExitStaged = 2 // rows need review, or there was nothing to write
	ExitFatal  = 3
)

var version = "dev"

// ExitError carries a non-zero exit code. Err is nil when the code is an outcome, not a failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func staged() error {
	return &ExitError{Code: ExitStaged}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configDir string
	logLevel  string
	logFormat string

	stdout io.Writer
	stderr io.Writer
}

// loadConfig reads the config directory and applies the logging flags.
func (g *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(g.configDir)
	if err != nil {
		return nil, err
	}
	if g.logLevel != "" {
		cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		cfg.Log.Format = g.logFormat
	}
	return cfg, nil
}

func (g *globalOptions) newLogger(cfg *config.Config) *slog.Logger {
	return logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: g.stderr,
	})
}

// NewRootCmd builds a fresh command tree writing results to stdout and logs to stderr.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalOptions{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "ledger",
		Short: "Turn receipt, check and statement images into categorized bookkeeping rows",
		Long: `ledger reads OCR output for financial document images, extracts dates, amounts and
vendors, files each document under a bookkeeping category and flags anything that
needs a human look.

Exit status is 0 when every row is clean, 2 when rows are staged for review or
nothing was written, and 3 on a fatal error.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&g.configDir, "config", "configs", "directory holding rules.yaml, sheets.yaml and vendors.yaml")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&g.logFormat, "log-format", "", "log format (json, text)")

	root.AddCommand(newParseCmd(g))
	root.AddCommand(newRunCmd(g))
	root.AddCommand(newReviewCmd(g))
	root.AddCommand(newWatchCmd(g))
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd(stdout, stderr)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	return exitCode(err, stderr)
}

func exitCode(err error, stderr io.Writer) int {
	if err == nil {
		return ExitClean
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", exitErr.Err)
		}
		return exitErr.Code
	}

	fmt.Fprintf(stderr, "Error: %v\n", err)
	return ExitFatal
}
