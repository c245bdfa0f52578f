// Package compiler runs the full grammar compilation pipeline:
// build, validate, synthesize the start symbol, analyze, count, enumerate,
// index, cluster and write.
//
// Fatal validation errors stop the run before anything is written.
// Warnings are reported and compilation continues.
package compiler

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"
	"go.uber.org/zap"

	"github.com/teranos/reductionist/bundle"
	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
	"github.com/teranos/reductionist/logger"
	"github.com/teranos/reductionist/meaning"
	"github.com/teranos/reductionist/pathdict"
	"github.com/teranos/reductionist/paths"
	"github.com/teranos/reductionist/progress"
	"github.com/teranos/reductionist/semantics"
	"github.com/teranos/reductionist/validate"
)

// Pipeline stage names, as reported to emitters and logs
const (
	StageLoad      = "load"
	StageValidate  = "validate"
	StageAnalyze   = "analyze"
	StageEnumerate = "enumerate"
	StageIndex     = "index"
	StageCluster   = "cluster"
	StageWrite     = "write"
)

// Options configures a compilation
type Options struct {
	Bundle    string // artifact base name
	OutputDir string
	Workers   int // path enumeration concurrency; values below 2 run sequentially

	// Trace logs every symbol and rule visited during path enumeration at debug level
	Trace bool

	Emitter progress.Emitter   // nil discards progress
	Logger  *zap.SugaredLogger // nil discards logs
}

// Result summarizes a successful compilation
type Result struct {
	BuildID      string
	Fingerprint  string   // base58 SHA-256 of the input document
	TotalOutputs *big.Int // generable lines
	Meanings     int
	Paths        int
	Warnings     []validate.Warning
	Written      []string // artifact paths
	Duration     time.Duration
}

// Summary renders the one-line success message
func (r *Result) Summary() string {
	return fmt.Sprintf("Indexed this grammar's %s generable lines to infer %d expressible meanings.",
		r.TotalOutputs.String(), r.Meanings)
}

// Fingerprint returns the base58 SHA-256 digest of an input document
func Fingerprint(input []byte) string {
	sum := sha256.Sum256(input)
	return base58.Encode(sum[:])
}

// CompileFile reads and compiles the grammar at path; the format follows the extension
func CompileFile(ctx context.Context, path string, opts Options) (*Result, error) {
	input, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to read grammar %s", path), errors.ErrLoad)
	}
	res, err := Compile(ctx, input, grammar.FormatFromPath(path), opts)
	if err != nil {
		var le *grammar.LoadError
		if errors.As(err, &le) && le.Path == "" {
			le.Path = path
		}
		return nil, err
	}
	return res, nil
}

// Compile compiles an in-memory grammar document and writes its bundle
func Compile(ctx context.Context, input []byte, format grammar.Format, opts Options) (*Result, error) {
	if opts.Bundle == "" {
		return nil, errors.New("bundle name is required")
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	c := &run{
		opts:    opts,
		emitter: progress.OrNop(opts.Emitter),
		started: time.Now(),
		result: &Result{
			BuildID:     uuid.NewString(),
			Fingerprint: Fingerprint(input),
		},
	}
	ctx = logger.WithBuildID(logger.WithBundle(ctx, opts.Bundle), c.result.BuildID)
	c.log = logger.OrNop(opts.Logger).With(logger.FieldsFromContext(ctx)...)

	if err := c.compile(ctx, input, format); err != nil {
		c.log.Errorw("Compilation failed", logger.FieldStage, c.stage, logger.FieldError, err)
		c.emitter.EmitError(c.stage, err)
		return nil, err
	}

	c.result.Duration = time.Since(c.started)
	c.log.Infow("Compilation complete",
		logger.FieldOutputs, c.result.TotalOutputs.String(),
		logger.FieldMeanings, c.result.Meanings,
		logger.FieldPaths, c.result.Paths,
		logger.FieldDurationMS, c.result.Duration.Milliseconds(),
	)
	c.emitter.EmitComplete(map[string]interface{}{
		"message":     c.result.Summary(),
		"build_id":    c.result.BuildID,
		"fingerprint": c.result.Fingerprint,
		"outputs":     c.result.TotalOutputs.String(),
		"meanings":    c.result.Meanings,
		"paths":       c.result.Paths,
		"duration_ms": c.result.Duration.Milliseconds(),
	})
	return c.result, nil
}

type run struct {
	opts    Options
	emitter progress.Emitter
	log     *zap.SugaredLogger
	stage   string
	started time.Time
	result  *Result
}

func (c *run) enter(ctx context.Context, stage, message string) error {
	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "compilation cancelled before %s", stage)
	}
	c.stage = stage
	c.emitter.EmitStage(stage, message)
	c.log.Debugw(message, logger.FieldStage, stage)
	return nil
}

func (c *run) compile(ctx context.Context, input []byte, format grammar.Format) error {
	if err := c.enter(ctx, StageLoad, "Indexing grammar"); err != nil {
		return err
	}
	spec, err := grammar.Decode(bytes.NewReader(input), format)
	if err != nil {
		return err
	}
	g, err := grammar.Build(spec)
	if err != nil {
		return err
	}
	c.log.Infow("Grammar loaded",
		logger.FieldSymbols, len(g.Symbols()),
		logger.FieldRules, len(g.Rules()),
	)

	if err := c.enter(ctx, StageValidate, "Validating grammar"); err != nil {
		return err
	}
	report := validate.Check(g)
	if err := report.Err(); err != nil {
		return err
	}
	for _, w := range report.Warnings {
		c.log.Warnw(w.Message(), logger.FieldStage, StageValidate)
		c.emitter.EmitWarning(w.Message())
	}
	c.result.Warnings = report.Warnings

	if err := g.SynthesizeStart(); err != nil {
		return err
	}

	if err := c.enter(ctx, StageAnalyze, "Analyzing meaningfulness"); err != nil {
		return err
	}
	m := semantics.Analyze(g)
	variants := semantics.CountVariants(g)
	c.result.TotalOutputs = variants.Total()
	c.log.Infow("Grammar analyzed",
		logger.FieldRules, m.CountRules(),
		logger.FieldSymbols, m.CountSymbols(),
		logger.FieldOutputs, c.result.TotalOutputs.String(),
	)

	if err := c.enter(ctx, StageEnumerate, "Collecting grammar paths"); err != nil {
		return err
	}
	var traceLog *zap.SugaredLogger
	if c.opts.Trace {
		traceLog = c.log.Named("paths")
	}
	enumerated, err := paths.Enumerate(ctx, g, m, paths.Options{
		Workers: c.opts.Workers,
		Logger:  traceLog,
	})
	if err != nil {
		return err
	}
	c.emitter.EmitProgress(len(enumerated.Paths), map[string]interface{}{"type": "paths"})

	if err := c.enter(ctx, StageIndex, "Building a trie"); err != nil {
		return err
	}
	dict := pathdict.Build(enumerated.Paths)
	c.result.Paths = dict.Len()

	if err := c.enter(ctx, StageCluster, "Constructing expressible meanings"); err != nil {
		return err
	}
	set, err := meaning.Cluster(g, dict)
	if err != nil {
		return err
	}
	c.result.Meanings = set.Len()
	c.emitter.EmitProgress(set.Len(), map[string]interface{}{"type": "meanings"})

	if err := c.enter(ctx, StageWrite, "Saving bundle"); err != nil {
		return err
	}
	if err := bundle.Write(c.opts.OutputDir, c.opts.Bundle, &bundle.Artifacts{
		Grammar:        g,
		Meaningfulness: m,
		Variants:       variants,
		Dictionary:     dict,
		Meanings:       set,
		Fingerprint:    c.result.Fingerprint,
	}); err != nil {
		return err
	}
	c.result.Written = bundle.Paths(c.opts.OutputDir, c.opts.Bundle)
	for _, path := range c.result.Written {
		c.log.Debugw("Artifact written", logger.FieldFile, path)
	}
	return nil
}
