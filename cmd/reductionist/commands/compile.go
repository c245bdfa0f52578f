package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/teranos/reductionist/compiler"
	"github.com/teranos/reductionist/config"
	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
	"github.com/teranos/reductionist/progress"
	"github.com/teranos/reductionist/source"
	"github.com/teranos/reductionist/watch"
)

func newCompileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compile <bundle-name> <grammar-file> [output-dir]",
		Short: "Compile a grammar into a bundle",
		Long: `Compile an annotated grammar into <output-dir>/<bundle-name>.{grammar,trie,meanings,stats}.

The grammar may be a local JSON or YAML file or any source go-getter understands
(https://..., s3::..., gcs::...). The output directory defaults to output.dir.

A grammar with a cycle is rejected and nothing is written. A grammar without
top-level symbols compiles with a warning and expresses no meanings.

Examples:
  reductionist compile greet greet.json out/
  reductionist compile greet https://example.com/greet.json out/ --workers 4
  reductionist compile greet greet.yaml out/ --watch -v`,
		Args: cobra.RangeArgs(2, 3),
		RunE: runCompile,
	}

	cmd.Flags().Int("verbosity", 0, "0 results only, 1 progress, 2 progress and path trace")
	cmd.Flags().Int("workers", 0, "Enumerate top-level symbols concurrently (default compile.workers)")
	cmd.Flags().Bool("watch", false, "Recompile whenever the grammar file changes")
	cmd.Flags().Bool("json", false, "Emit progress and logs as JSON")
	cmd.Flags().Bool("allow-private", false, "Allow fetching grammars from private network addresses")
	return cmd
}

func runCompile(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	verbosity, err := resolveVerbosity(cmd, cfg)
	if err != nil {
		return err
	}

	name, input := args[0], args[1]
	outputDir := cfg.GetOutputDir()
	if len(args) == 3 {
		outputDir = args[2]
	}
	workers := cfg.GetWorkers()
	if cmd.Flags().Changed("workers") {
		workers, _ = cmd.Flags().GetInt("workers")
		if workers < 0 || workers > config.MaxWorkers {
			return errors.Newf("workers must be between 0 and %d, got %d", config.MaxWorkers, workers)
		}
	}
	watching, _ := cmd.Flags().GetBool("watch")
	allowPrivate, _ := cmd.Flags().GetBool("allow-private")

	var emitter progress.Emitter
	if jsonOutput(cmd, cfg) {
		emitter = progress.NewJSONEmitterTo(cmd.OutOrStdout())
	} else {
		emitter = progress.NewCLIEmitterTo(cmd.OutOrStdout(), verbosity)
	}

	ctx := cmd.Context()

	src, err := source.Resolve(ctx, input, source.Options{
		CacheDir:     cfg.Source.CacheDir,
		AllowPrivate: allowPrivate,
		Logger:       logger.ComponentLogger("source"),
	})
	if err != nil {
		return err
	}
	defer src.Cleanup()

	compile := func() error {
		_, err := compiler.CompileFile(ctx, src.Path, compiler.Options{
			Bundle:    name,
			OutputDir: outputDir,
			Workers:   workers,
			Trace:     logger.ShouldOutput(verbosity, logger.OutputPathTrace),
			Emitter:   emitter,
			Logger:    logger.ComponentLogger("compiler"),
		})
		if err != nil {
			return errors.Mark(err, ErrReported)
		}
		return nil
	}

	err = compile()
	if !watching {
		return err
	}

	if src.Fetched {
		return errors.WithHint(errors.New("--watch needs a local grammar file"),
			"download the grammar first, then watch the local copy")
	}
	w, err := watch.New(src.Path, time.Duration(cfg.GetDebounceMS())*time.Millisecond, logger.ComponentLogger("watch"))
	if err != nil {
		return err
	}
	w.OnChange(func(string) error { return compile() })
	emitter.EmitInfo("Watching " + src.Path + " for changes (Ctrl+C to stop)")
	return w.Run(ctx)
}
