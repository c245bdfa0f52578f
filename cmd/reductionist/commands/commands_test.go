package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/reductionist/bundle"
	"github.com/teranos/reductionist/config"
	"github.com/teranos/reductionist/errors"
	rdxtest "github.com/teranos/reductionist/internal/testing"
)

// setup isolates a test from project configuration and terminal styling
func setup(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	chdir(t, dir)
	config.Reset()
	t.Cleanup(config.Reset)
	pterm.DisableStyling()
	t.Cleanup(pterm.EnableStyling)
	return dir
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := NewRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeGrammar(t *testing.T, dir, name, doc string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestCompileCommand(t *testing.T) {
	dir := setup(t)
	grammarPath := writeGrammar(t, dir, "greet.json", rdxtest.GreetingJSON)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "compile", "greet", grammarPath, outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed this grammar's 4 generable lines to infer 2 expressible meanings.")
	for _, p := range bundle.Paths(outDir, "greet") {
		assert.FileExists(t, p)
	}
}

func TestCompileCommandProgress(t *testing.T) {
	dir := setup(t)
	grammarPath := writeGrammar(t, dir, "greet.yaml", rdxtest.GreetingYAML)

	out, err := run(t, "compile", "greet", grammarPath, filepath.Join(dir, "out"), "-v", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Collecting grammar paths")
	assert.Contains(t, out, "meanings: 2")
}

func TestCompileCommandJSON(t *testing.T) {
	dir := setup(t)
	grammarPath := writeGrammar(t, dir, "greet.json", rdxtest.GreetingJSON)

	out, err := run(t, "compile", "greet", grammarPath, filepath.Join(dir, "out"), "--json")
	require.NoError(t, err)

	var last map[string]interface{}
	lines := bytes.Split(bytes.TrimSpace([]byte(out)), []byte("\n"))
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &last))
	assert.Equal(t, "complete", last["type"])
}

func TestCompileCommandCycle(t *testing.T) {
	dir := setup(t)
	grammarPath := writeGrammar(t, dir, "cycle.json", rdxtest.CycleJSON)
	outDir := filepath.Join(dir, "out")

	out, err := run(t, "compile", "cycle", grammarPath, outDir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReported))
	assert.True(t, errors.Is(err, errors.ErrCycle))
	assert.Contains(t, out, "Error in validate")
	assert.Contains(t, out, "[[A]]")

	_, statErr := os.Stat(outDir)
	assert.True(t, os.IsNotExist(statErr), "no artifacts may be written")
}

func TestCompileCommandArgs(t *testing.T) {
	dir := setup(t)
	grammarPath := writeGrammar(t, dir, "greet.json", rdxtest.GreetingJSON)

	tests := []struct {
		name string
		args []string
	}{
		{"bad verbosity", []string{"compile", "greet", grammarPath, "out", "--verbosity", "3"}},
		{"bad workers", []string{"compile", "greet", grammarPath, "out", "--workers", "-1"}},
		{"missing grammar", []string{"compile", "greet", filepath.Join(dir, "missing.json"), "out"}},
		{"too few args", []string{"compile", "greet"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestCompileDefaultsToConfiguredOutputDir(t *testing.T) {
	dir := setup(t)
	grammarPath := writeGrammar(t, dir, "greet.json", rdxtest.GreetingJSON)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ProjectConfigName), []byte("[output]\ndir = \"artifacts\"\n"), 0644))
	config.Reset()

	_, err := run(t, "compile", "greet", grammarPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, "artifacts", "greet.meanings"))
}

func compileGreeting(t *testing.T, dir string) string {
	t.Helper()
	outDir := filepath.Join(dir, "out")
	_, err := run(t, "compile", "greet", writeGrammar(t, dir, "greet.json", rdxtest.GreetingJSON), outDir)
	require.NoError(t, err)
	return outDir
}

func TestLookupCommand(t *testing.T) {
	dir := setup(t)
	outDir := compileGreeting(t, dir)

	out, err := run(t, "lookup", outDir, "greet", "character:alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Meaning 0 [character:alice]: 2 paths")
	assert.Contains(t, out, "6,0,2")
	assert.Contains(t, out, "6,1,2")

	out, err = run(t, "lookup", outDir, "greet", "character:bob", "--json")
	require.NoError(t, err)
	var res lookupResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Meaning)
	assert.Equal(t, []lookupPathRow{{Key: 1, Path: "6,0,3"}, {Key: 3, Path: "6,1,3"}}, res.Paths)

	out, err = run(t, "lookup", outDir, "greet", "--list-tags")
	require.NoError(t, err)
	assert.Equal(t, "character:alice\ncharacter:bob\n", out)

	_, err = run(t, "lookup", outDir, "greet", "character:carol")
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestExportAndLookupFromIndex(t *testing.T) {
	dir := setup(t)
	outDir := compileGreeting(t, dir)
	dbPath := filepath.Join(dir, "index.db")

	out, err := run(t, "export", outDir, "greet", "--db", dbPath, "--build-id", "build-1")
	require.NoError(t, err)
	assert.Contains(t, out, "2 meanings, 4 paths, 2 tags (build build-1)")
	assert.FileExists(t, dbPath)

	out, err = run(t, "lookup", outDir, "greet", "character:bob", "--db", dbPath, "--json")
	require.NoError(t, err)
	var res lookupResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Meaning)
	assert.Len(t, res.Paths, 2)
}

func TestExportDefaultsIntoOutputDir(t *testing.T) {
	dir := setup(t)
	outDir := compileGreeting(t, dir)

	_, err := run(t, "export", outDir, "greet")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, DefaultIndexName))
}

func TestConfigCommands(t *testing.T) {
	setup(t)

	out, err := run(t, "config", "show", "--format", "json")
	require.NoError(t, err)
	var shown map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Contains(t, shown, "compile")

	out, err = run(t, "config", "get", "compile.workers")
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = run(t, "config", "get", "compile.nope")
	assert.True(t, errors.IsNotFoundError(err))

	out, err = run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration is valid")

	out, err = run(t, "config", "where")
	require.NoError(t, err)
	assert.Contains(t, out, config.SystemConfigPath)
	assert.Contains(t, out, "REDUCTIONIST_*")

	_, err = run(t, "config", "show", "--format", "xml")
	assert.Error(t, err)
}

func TestConfigValidateReportsUnknownKeys(t *testing.T) {
	dir := setup(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.ProjectConfigName), []byte("[compile]\nworker = 4\n"), 0644))
	config.Reset()

	out, err := run(t, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, `unknown key "compile.worker"`)
}

func TestVersionCommand(t *testing.T) {
	setup(t)

	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "reductionist")
	assert.Contains(t, out, "Platform:")

	out, err = run(t, "version", "--json")
	require.NoError(t, err)
	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "trie_format")
}

func TestPrintError(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var buf bytes.Buffer
	PrintError(&buf, errors.WithHint(errors.New("boom"), "try again"))
	assert.Contains(t, buf.String(), "boom")
	assert.Contains(t, buf.String(), "hint: try again")

	buf.Reset()
	PrintError(&buf, errors.Mark(errors.New("already shown"), ErrReported))
	assert.Empty(t, buf.String())
}
