package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/reductionist/bundle"
	"github.com/teranos/reductionist/pathdict"
	"github.com/teranos/reductionist/store"
)

type lookupResult struct {
	Bundle  string          `json:"bundle"`
	Meaning int             `json:"meaning"`
	Tags    []string        `json:"tags"`
	Paths   []lookupPathRow `json:"paths"`
}

type lookupPathRow struct {
	Key  int    `json:"key"`
	Path string `json:"path"`
}

func newLookupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lookup <output-dir> <bundle-name> [tag...]",
		Short: "Find the meaning carrying exactly a set of tags",
		Long: `Print the expressible meaning whose tag-set is exactly the given tags, with the
dictionary keys and rule paths that express it. No tags selects the meaning
without tags.

Tags are written tagset:value.

Examples:
  reductionist lookup out/ greet character:alice
  reductionist lookup out/ greet --list-tags
  reductionist lookup out/ greet character:bob --db index.db`,
		Args: cobra.MinimumNArgs(2),
		RunE: runLookup,
	}
	cmd.Flags().Bool("json", false, "Output the match as JSON")
	cmd.Flags().Bool("list-tags", false, "List the bundle's tags instead")
	cmd.Flags().String("db", "", "Query a SQLite index written by export instead of the artifacts")
	return cmd
}

func runLookup(cmd *cobra.Command, args []string) error {
	dir, name, tags := args[0], args[1], args[2:]
	asJSON, _ := cmd.Flags().GetBool("json")
	listTags, _ := cmd.Flags().GetBool("list-tags")
	dbPath, _ := cmd.Flags().GetString("db")
	out := cmd.OutOrStdout()

	var result *lookupResult
	if dbPath != "" && !listTags {
		s, err := store.Open(dbPath, nil)
		if err != nil {
			return err
		}
		defer s.Close()
		m, err := s.FindMeaningByTags(cmd.Context(), name, tags)
		if err != nil {
			return err
		}
		result = newLookupResult(name, m.ID, m.Tags, m.Paths)
	} else {
		b, err := bundle.Open(dir, name)
		if err != nil {
			return err
		}
		if listTags {
			for _, tag := range b.Tags() {
				fmt.Fprintln(out, tag)
			}
			return nil
		}
		match, err := b.Lookup(tags)
		if err != nil {
			return err
		}
		entries := make([]pathdict.Entry, len(match.Paths))
		for i, p := range match.Paths {
			entries[i] = pathdict.Entry{Key: p.Key, Path: p.Path}
		}
		result = newLookupResult(name, match.Meaning.ID, match.Meaning.Tags, entries)
	}

	if asJSON {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	pterm.Fprintln(out, fmt.Sprintf("Meaning %d [%s]: %d paths", result.Meaning, strings.Join(result.Tags, ", "), len(result.Paths)))
	data := pterm.TableData{{"Key", "Path"}}
	for _, p := range result.Paths {
		data = append(data, []string{strconv.Itoa(p.Key), p.Path})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(out).Render()
}

func newLookupResult(name string, id int, tags []string, entries []pathdict.Entry) *lookupResult {
	r := &lookupResult{Bundle: name, Meaning: id, Tags: tags, Paths: []lookupPathRow{}}
	if r.Tags == nil {
		r.Tags = []string{}
	}
	for _, e := range entries {
		r.Paths = append(r.Paths, lookupPathRow{Key: e.Key, Path: e.Path})
	}
	return r
}
