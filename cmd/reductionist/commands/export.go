package commands

import (
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/reductionist/bundle"
	"github.com/teranos/reductionist/config"
	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/logger"
	"github.com/teranos/reductionist/store"
)

// DefaultIndexName is the SQLite file export writes when neither --db nor output.sqlite_path is set
const DefaultIndexName = "reductionist.db"

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <output-dir> <bundle-name>",
		Short: "Load a compiled bundle into a SQLite index",
		Long: `Write a compiled bundle's tags, paths and meanings into a SQLite database,
replacing any earlier export of the same bundle.

The database defaults to output.sqlite_path, or <output-dir>/reductionist.db.

Examples:
  reductionist export out/ greet
  reductionist export out/ greet --db index.db`,
		Args: cobra.ExactArgs(2),
		RunE: runExport,
	}
	cmd.Flags().String("db", "", "SQLite database path")
	cmd.Flags().String("build-id", "", "Build id to record (default: a new UUID)")
	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	dir, name := args[0], args[1]

	dbPath, _ := cmd.Flags().GetString("db")
	if dbPath == "" {
		dbPath = cfg.Output.SQLitePath
	}
	if dbPath == "" {
		dbPath = filepath.Join(dir, DefaultIndexName)
	}
	buildID, _ := cmd.Flags().GetString("build-id")

	b, err := bundle.Open(dir, name)
	if err != nil {
		return err
	}
	s, err := store.Open(dbPath, logger.ComponentLogger("store"))
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.Export(cmd.Context(), b, buildID)
	if err != nil {
		return err
	}
	pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln("Exported %s to %s: %d meanings, %d paths, %d tags (build %s)",
		name, dbPath, res.Meanings, res.Paths, res.Tags, res.BuildID)
	return nil
}
