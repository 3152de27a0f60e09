// Package cli implements the sumzero command line.
package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dgallion1/sumzero/internal/chunker"
	"github.com/dgallion1/sumzero/internal/config"
	"github.com/dgallion1/sumzero/internal/console"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitFatal  = 1
	ExitConfig = 2
)

// ConfigError marks a failure caused by missing or invalid configuration.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string { return "configuration: " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitConfig
	}
	return ExitFatal
}

// Replaced in tests to avoid fetching BPE ranks.
var newTokenizer = chunker.NewTokenizer

// app holds state shared by all subcommands.
type app struct {
	verbose bool
	envFile string
	log     *slog.Logger
}

// NewRootCommand builds the sumzero command tree.
func NewRootCommand(version string) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "sumzero",
		Short:         "Summarize web-novel arcs chapter by chapter with an LLM",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnvFile(a.envFile); err != nil {
				return &ConfigError{Err: err}
			}
			level := slog.LevelInfo
			if a.verbose {
				level = slog.LevelDebug
			}
			a.log = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print per-block detail and debug logs")
	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "dotenv file to load (default .env when present)")

	root.AddCommand(
		newSummarizeCommand(a),
		newChaptersCommand(a),
		newDumpCommand(a),
		newExtractCommand(a),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context, version string, args []string) int {
	root := NewRootCommand(version)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if err != nil {
		console.New(root.ErrOrStderr(), false).Error("%v", err)
	}
	return ExitCode(err)
}
