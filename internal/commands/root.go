// Package commands wires the engine into a cobra CLI.
package commands

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mojito-dev/mojito/internal/buildinfo"
	"github.com/mojito-dev/mojito/internal/workspace"
)

// env carries the persistent flags and the root logger to subcommands.
type env struct {
	dir      string
	logLevel string
	log      zerolog.Logger
}

func (e *env) open() (*workspace.Workspace, error) {
	return workspace.Open(e.dir, e.log)
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	e := &env{}

	rootCmd := &cobra.Command{
		Use:     "mojito",
		Short:   "Local mirror and sync engine for an aggregator transaction ledger",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := zerolog.ParseLevel(e.logLevel)
			if err != nil {
				return fmt.Errorf("parsing log level %q: %w", e.logLevel, err)
			}
			e.log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
				Level(level).
				With().Timestamp().Logger()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&e.dir, "dir", ".", "data directory")
	rootCmd.PersistentFlags().StringVar(&e.logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newInitCommand(e))
	rootCmd.AddCommand(newImportCommand(e))
	rootCmd.AddCommand(newRecalcCommand(e))
	rootCmd.AddCommand(newReconcileCommand(e))
	rootCmd.AddCommand(newPushCommand(e))

	return rootCmd
}
