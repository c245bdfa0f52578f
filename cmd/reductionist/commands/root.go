// Package commands implements the reductionist CLI.
package commands

import (
	"fmt"
	"io"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/reductionist/config"
	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
)

// ErrReported marks errors that a progress emitter already printed
var ErrReported = errors.New("error already reported")

// NewRootCmd builds the reductionist command tree
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "reductionist",
		Short: "Compile annotated grammars into meaning indexes",
		Long: `reductionist - compile annotated context-free grammars into meaning indexes.

A grammar's symbols carry tags. reductionist enumerates every distinct
combination of tags the grammar can express, records the rule paths that
produce each one, and writes a bundle a runtime can query by tag-set.

Available commands:
  compile - Compile a grammar into a bundle
  lookup  - Find the meaning carrying exactly a set of tags
  export  - Load a bundle into a SQLite index
  config  - Show and validate configuration
  version - Show version information

Examples:
  reductionist compile greet greet.json out/        # Compile greet.json into out/greet.*
  reductionist compile greet greet.json out/ -v     # ... with progress
  reductionist lookup out/ greet character:alice    # Paths expressing character:alice
  reductionist export out/ greet --db index.db      # Load the bundle into SQLite`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return errors.Wrap(err, "failed to load configuration")
			}
			verbosity, err := resolveVerbosity(cmd, cfg)
			if err != nil {
				return err
			}
			logger.SetTheme(cfg.GetLogTheme())
			if err := logger.Initialize(jsonOutput(cmd, cfg), verbosity); err != nil {
				return errors.Wrap(err, "failed to initialize logger")
			}
			logger.Debugw("Logger initialized", "verbosity", logger.LevelName(verbosity))
			return nil
		},
	}

	root.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")

	root.AddCommand(newCompileCmd())
	root.AddCommand(newLookupCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newConfigCmd())
	root.AddCommand(newVersionCmd())
	return root
}

// resolveVerbosity applies --verbosity, then -v, then compile.verbosity
func resolveVerbosity(cmd *cobra.Command, cfg *config.Config) (int, error) {
	verbosity := cfg.Compile.Verbosity
	if count, _ := cmd.Flags().GetCount("verbose"); count > 0 {
		verbosity = count
		if verbosity > config.MaxVerbosity {
			verbosity = config.MaxVerbosity
		}
	}
	if f := cmd.Flags().Lookup("verbosity"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetInt("verbosity")
		verbosity = v
	}
	if verbosity < 0 || verbosity > config.MaxVerbosity {
		return 0, errors.WithHint(
			errors.Newf("verbosity must be between 0 and %d, got %d", config.MaxVerbosity, verbosity),
			"0: "+logger.VerbosityDescription(0)+"; 1: "+logger.VerbosityDescription(1)+"; 2: "+logger.VerbosityDescription(2))
	}
	return verbosity, nil
}

func jsonOutput(cmd *cobra.Command, cfg *config.Config) bool {
	if f := cmd.Flags().Lookup("json"); f != nil && f.Changed {
		v, _ := cmd.Flags().GetBool("json")
		return v
	}
	return cfg.Log.JSON
}

// PrintError prints err and its hints unless an emitter already did
func PrintError(w io.Writer, err error) {
	if errors.Is(err, ErrReported) {
		return
	}
	pterm.Error.WithWriter(w).Println(err.Error())
	for _, hint := range errors.GetAllHints(err) {
		pterm.Fprintln(w, fmt.Sprintf("  hint: %s", hint))
	}
}
