package compiler_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/reductionist/bundle"
	"github.com/teranos/reductionist/compiler"
	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
	rdxtest "github.com/teranos/reductionist/internal/testing"
	"github.com/teranos/reductionist/validate"
)

// recordingEmitter captures emitted events for assertions
type recordingEmitter struct {
	mu       sync.Mutex
	stages   []string
	warnings []string
	errors   []string
	progress map[string]int
	complete map[string]interface{}
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{progress: map[string]int{}}
}

func (r *recordingEmitter) EmitStage(stage string, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *recordingEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress[metadata["type"].(string)] = count
}

func (r *recordingEmitter) EmitWarning(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, message)
}

func (r *recordingEmitter) EmitComplete(summary map[string]interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = summary
}

func (r *recordingEmitter) EmitError(stage string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, stage+": "+err.Error())
}

func (r *recordingEmitter) EmitInfo(message string) {}

func dirEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestCompileGreeting(t *testing.T) {
	dir := t.TempDir()
	emitter := newRecordingEmitter()

	res, err := compiler.Compile(context.Background(), []byte(rdxtest.GreetingJSON), grammar.FormatJSON, compiler.Options{
		Bundle:    "greet",
		OutputDir: dir,
		Emitter:   emitter,
	})
	require.NoError(t, err)

	assert.Equal(t, "4", res.TotalOutputs.String())
	assert.Equal(t, 2, res.Meanings)
	assert.Equal(t, 4, res.Paths)
	assert.Empty(t, res.Warnings)
	assert.Len(t, res.BuildID, 36)
	assert.Equal(t, compiler.Fingerprint([]byte(rdxtest.GreetingJSON)), res.Fingerprint)
	assert.Equal(t, bundle.Paths(dir, "greet"), res.Written)
	assert.Equal(t, "Indexed this grammar's 4 generable lines to infer 2 expressible meanings.", res.Summary())

	assert.Equal(t, []string{
		compiler.StageLoad, compiler.StageValidate, compiler.StageAnalyze,
		compiler.StageEnumerate, compiler.StageIndex, compiler.StageCluster, compiler.StageWrite,
	}, emitter.stages)
	assert.Equal(t, 4, emitter.progress["paths"])
	assert.Equal(t, 2, emitter.progress["meanings"])
	assert.Equal(t, res.Summary(), emitter.complete["message"])
	assert.Empty(t, emitter.errors)

	b, err := bundle.Open(dir, "greet")
	require.NoError(t, err)
	match, err := b.Lookup([]string{"character:alice"})
	require.NoError(t, err)
	assert.Len(t, match.Paths, 2)

	stats, err := b.Stats()
	require.NoError(t, err)
	assert.Equal(t, res.Fingerprint, stats.Fingerprint)
}

func TestCompileYAMLMatchesJSON(t *testing.T) {
	jsonDir, yamlDir := t.TempDir(), t.TempDir()

	_, err := compiler.Compile(context.Background(), []byte(rdxtest.GreetingJSON), grammar.FormatJSON,
		compiler.Options{Bundle: "greet", OutputDir: jsonDir})
	require.NoError(t, err)
	_, err = compiler.Compile(context.Background(), []byte(rdxtest.GreetingYAML), grammar.FormatYAML,
		compiler.Options{Bundle: "greet", OutputDir: yamlDir})
	require.NoError(t, err)

	for _, ext := range []string{bundle.ExtGrammar, bundle.ExtTrie, bundle.ExtMeanings} {
		a, err := os.ReadFile(filepath.Join(jsonDir, "greet"+ext))
		require.NoError(t, err)
		b, err := os.ReadFile(filepath.Join(yamlDir, "greet"+ext))
		require.NoError(t, err)
		assert.Equal(t, a, b, ext)
	}
}

func TestCompileCycleWritesNothing(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	emitter := newRecordingEmitter()

	res, err := compiler.Compile(context.Background(), []byte(rdxtest.CycleJSON), grammar.FormatJSON, compiler.Options{
		Bundle:    "cycle",
		OutputDir: dir,
		Emitter:   emitter,
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, errors.ErrCycle))

	var cycle *validate.CycleError
	require.True(t, errors.As(err, &cycle))
	assert.Equal(t, "A", cycle.Symbol)

	assert.Empty(t, dirEntries(t, dir))
	require.Len(t, emitter.errors, 1)
	assert.Contains(t, emitter.errors[0], compiler.StageValidate)
	assert.Nil(t, emitter.complete)
}

func TestCompileNoTopLevelWarns(t *testing.T) {
	dir := t.TempDir()
	emitter := newRecordingEmitter()

	res, err := compiler.Compile(context.Background(), []byte(rdxtest.NoTopLevelJSON), grammar.FormatJSON, compiler.Options{
		Bundle:    "empty",
		OutputDir: dir,
		Emitter:   emitter,
	})
	require.NoError(t, err)

	require.Len(t, res.Warnings, 1)
	assert.Equal(t, validate.NoTopLevelSymbolWarning{}.Message(), emitter.warnings[0])
	assert.Equal(t, 0, res.Meanings)
	assert.Equal(t, "0", res.TotalOutputs.String())
	for _, p := range bundle.Paths(dir, "empty") {
		assert.FileExists(t, p)
	}
}

func TestCompileIdempotent(t *testing.T) {
	dir := t.TempDir()
	opts := compiler.Options{Bundle: "greet", OutputDir: dir, Workers: 4}

	_, err := compiler.Compile(context.Background(), []byte(rdxtest.GreetingJSON), grammar.FormatJSON, opts)
	require.NoError(t, err)
	first := map[string][]byte{}
	for _, p := range bundle.Paths(dir, "greet") {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		first[p] = data
	}

	_, err = compiler.Compile(context.Background(), []byte(rdxtest.GreetingJSON), grammar.FormatJSON, opts)
	require.NoError(t, err)
	for _, p := range bundle.Paths(dir, "greet") {
		data, err := os.ReadFile(p)
		require.NoError(t, err)
		assert.Equal(t, first[p], data, p)
	}
	assert.Len(t, dirEntries(t, dir), len(bundle.Extensions))
}

func TestCompileCancelled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compiler.Compile(ctx, []byte(rdxtest.GreetingJSON), grammar.FormatJSON,
		compiler.Options{Bundle: "greet", OutputDir: dir})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Empty(t, dirEntries(t, dir))
}

func TestCompileLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		doc      string
		sentinel error
	}{
		{"malformed", `{"nonterminals": `, errors.ErrLoad},
		{"undeclared reference", `{"nonterminals": {"A": {"deep": true, "rules": [{"expansion": ["[[Missing]]"], "app_rate": 1}]}}}`, errors.ErrReference},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), "out")
			_, err := compiler.Compile(context.Background(), []byte(tt.doc), grammar.FormatJSON,
				compiler.Options{Bundle: "bad", OutputDir: dir})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.True(t, errors.IsFatal(err))
			assert.Empty(t, dirEntries(t, dir))
		})
	}
}

func TestCompileRequiresBundleName(t *testing.T) {
	_, err := compiler.Compile(context.Background(), []byte(rdxtest.GreetingJSON), grammar.FormatJSON, compiler.Options{})
	require.Error(t, err)
}

func TestCompileFile(t *testing.T) {
	src := t.TempDir()
	out := t.TempDir()

	path := filepath.Join(src, "greet.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rdxtest.GreetingYAML), 0644))
	res, err := compiler.CompileFile(context.Background(), path, compiler.Options{Bundle: "greet", OutputDir: out})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Meanings)

	bad := filepath.Join(src, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`[]`), 0644))
	_, err = compiler.CompileFile(context.Background(), bad, compiler.Options{Bundle: "bad", OutputDir: out})
	var le *grammar.LoadError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, bad, le.Path)

	_, err = compiler.CompileFile(context.Background(), filepath.Join(src, "missing.json"), compiler.Options{Bundle: "x", OutputDir: out})
	assert.True(t, errors.Is(err, errors.ErrLoad))
}

func TestCompileTraceLogsPaths(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	_, err := compiler.Compile(context.Background(), []byte(rdxtest.GreetingJSON), grammar.FormatJSON, compiler.Options{
		Bundle:    "greet",
		OutputDir: t.TempDir(),
		Trace:     true,
		Logger:    zap.New(core).Sugar(),
	})
	require.NoError(t, err)

	assert.NotZero(t, logs.FilterMessageSnippet("Collecting paths descending from symbol [[Greeting]]").Len())
	assert.Equal(t, 1, logs.FilterMessage("Compilation complete").Len())

	complete := logs.FilterMessage("Compilation complete").All()[0].ContextMap()
	assert.Equal(t, "greet", complete["bundle"])
	assert.NotEmpty(t, complete["build_id"])
}
