// Package paths enumerates the distinct sequences of meaningful rule firings
// reachable from the start symbol.
//
// A path is a comma-separated list of rule ids. Rules that are not meaningful
// never appear: everything beneath them only varies wording, not tags, so
// paths that differ only there collapse into one.
package paths

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
	"github.com/teranos/reductionist/logger"
	"github.com/teranos/reductionist/semantics"
)

// Separator joins rule ids in a path
const Separator = ","

// Options configures enumeration
type Options struct {
	// Workers enumerates the start symbol's rules concurrently when greater than 1
	Workers int
	// Logger receives the debug path trace; nil disables it
	Logger *zap.SugaredLogger
}

// Result is the path set of the start symbol
type Result struct {
	Paths   []string // distinct, sorted
	Visited int      // symbols whose path sets were computed
}

// slot memoizes one symbol's path set; it is written once
type slot struct {
	once  sync.Once
	paths []string
	err   error
}

type enumerator struct {
	ctx   context.Context
	g     *grammar.Grammar
	m     *semantics.Meaningfulness
	log   *zap.SugaredLogger
	trace bool
	memo  []slot

	mu      sync.Mutex
	visited int
}

// Enumerate computes the path set of the start symbol.
// The grammar must be validated and have its start symbol synthesized.
func Enumerate(ctx context.Context, g *grammar.Grammar, m *semantics.Meaningfulness, opts Options) (*Result, error) {
	start := g.Start()
	if start == nil {
		return nil, errors.AssertionFailedf("start symbol has not been synthesized")
	}

	e := &enumerator{
		ctx:  ctx,
		g:    g,
		m:    m,
		log:  logger.OrNop(opts.Logger),
		memo: make([]slot, len(g.Symbols())),
	}
	e.trace = opts.Logger != nil && opts.Logger.Desugar().Core().Enabled(zap.DebugLevel)

	var paths []string
	var err error
	if opts.Workers > 1 && len(start.Rules) > 1 {
		paths, err = e.startConcurrently(start, opts.Workers)
	} else {
		paths, err = e.symbolPaths(start.ID, 0)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Paths: paths, Visited: e.visited}, nil
}

// startConcurrently enumerates the start symbol's rules on a bounded errgroup.
// Memo slots are shared; sync.Once makes a slot's first writer the only writer.
func (e *enumerator) startConcurrently(start *grammar.Symbol, workers int) ([]string, error) {
	e.traceSymbol(start, 0)

	results := make([][]string, len(start.Rules))
	group, ctx := errgroup.WithContext(e.ctx)
	group.SetLimit(workers)
	e.ctx = ctx

	for i, ruleID := range start.Rules {
		i, ruleID := i, ruleID
		group.Go(func() error {
			paths, err := e.rulePaths(e.g.Rule(ruleID), 1)
			if err != nil {
				return err
			}
			results[i] = paths
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	e.countVisit()
	return union(results...), nil
}

func (e *enumerator) symbolPaths(id int, depth int) ([]string, error) {
	s := &e.memo[id]
	s.once.Do(func() {
		if err := e.ctx.Err(); err != nil {
			s.err = errors.Wrap(err, "path enumeration cancelled")
			return
		}

		sym := e.g.Symbol(id)
		e.traceSymbol(sym, depth)

		sets := make([][]string, 0, len(sym.Rules))
		for _, ruleID := range sym.Rules {
			paths, err := e.rulePaths(e.g.Rule(ruleID), depth+1)
			if err != nil {
				s.err = err
				return
			}
			sets = append(sets, paths)
		}
		s.paths = union(sets...)
		e.countVisit()
	})
	return s.paths, s.err
}

func (e *enumerator) rulePaths(r *grammar.Rule, depth int) ([]string, error) {
	e.traceRule(r, depth)

	if !e.m.Rule(r.ID) {
		return []string{""}, nil
	}
	own := strconv.Itoa(r.ID)

	var children [][]string
	for _, child := range r.References() {
		if !e.m.Symbol(child) {
			continue
		}
		paths, err := e.symbolPaths(child, depth+1)
		if err != nil {
			return nil, err
		}
		if len(paths) == 0 {
			// A child without rules empties the product
			return []string{own}, nil
		}
		children = append(children, paths)
	}
	if len(children) == 0 {
		return []string{own}, nil
	}

	seen := make(map[string]struct{})
	tuple := make([]string, 0, len(children))
	forEachTuple(children, func(members []string) {
		tuple = tuple[:0]
		for _, p := range members {
			if p != "" {
				tuple = append(tuple, p)
			}
		}
		if len(tuple) == 0 {
			seen[own] = struct{}{}
			return
		}
		seen[own+Separator+strings.Join(tuple, Separator)] = struct{}{}
	})
	return sortedKeys(seen), nil
}

// forEachTuple visits the Cartesian product of sets in odometer order
func forEachTuple(sets [][]string, fn func([]string)) {
	idx := make([]int, len(sets))
	members := make([]string, len(sets))
	for {
		for i, set := range sets {
			members[i] = set[idx[i]]
		}
		fn(members)

		i := len(sets) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(sets[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return
		}
	}
}

func (e *enumerator) countVisit() {
	e.mu.Lock()
	e.visited++
	e.mu.Unlock()
}

func (e *enumerator) traceSymbol(s *grammar.Symbol, depth int) {
	if !e.trace {
		return
	}
	e.log.Debugw(strings.Repeat("  ", depth)+"Collecting paths descending from symbol "+s.String(),
		logger.FieldSymbol, s.Name,
		logger.FieldDepth, depth)
}

func (e *enumerator) traceRule(r *grammar.Rule, depth int) {
	if !e.trace {
		return
	}
	e.log.Debugw(strings.Repeat("  ", depth)+"Collecting paths descending from rule #"+strconv.Itoa(r.ID),
		logger.FieldRule, r.ID,
		logger.FieldDepth, depth)
}

func union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, p := range set {
			seen[p] = struct{}{}
		}
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Encode joins rule ids into a path string
func Encode(ruleIDs []int) string {
	parts := make([]string, len(ruleIDs))
	for i, id := range ruleIDs {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, Separator)
}

// Decode splits a path string into rule ids. The empty path decodes to no rules.
func Decode(path string) ([]int, error) {
	if path == "" {
		return nil, nil
	}
	parts := strings.Split(path, Separator)
	ids := make([]int, len(parts))
	for i, part := range parts {
		id, err := strconv.Atoi(part)
		if err != nil || id < 0 {
			return nil, errors.Mark(errors.Newf("invalid rule id %q in path %q", part, path), errors.ErrFormat)
		}
		ids[i] = id
	}
	return ids, nil
}
