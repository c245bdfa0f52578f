package paths_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
	rdxtest "github.com/teranos/reductionist/internal/testing"
	"github.com/teranos/reductionist/paths"
	"github.com/teranos/reductionist/semantics"
)

func enumerate(t *testing.T, doc string, opts paths.Options) (*grammar.Grammar, *paths.Result) {
	t.Helper()
	g := rdxtest.MustBuildWithStart(t, doc)
	res, err := paths.Enumerate(context.Background(), g, semantics.Analyze(g), opts)
	require.NoError(t, err)
	return g, res
}

func TestEnumerateGreeting(t *testing.T) {
	_, res := enumerate(t, rdxtest.GreetingJSON, paths.Options{})

	// START rule 6, Greeting rules 0/1, Name rules 2/3; Alice and Bob leaf rules elided
	assert.Equal(t, []string{"6,0,2", "6,0,3", "6,1,2", "6,1,3"}, res.Paths)
	assert.Equal(t, 5, res.Visited)
}

func TestEnumerateConcurrentMatchesSequential(t *testing.T) {
	doc := `{"nonterminals": {
		"Ask": {"deep": true, "rules": [{"expansion": ["[[Who]]", "?"], "app_rate": 1}, {"expansion": ["[[Who]]", " [[Mood]]"], "app_rate": 1}]},
		"Tell": {"deep": true, "rules": [{"expansion": ["[[Who]]", "[[Mood]]"], "app_rate": 1}]},
		"Shrug": {"deep": true, "rules": [{"expansion": ["meh"], "app_rate": 1}]},
		"Who": {"rules": [{"expansion": ["[[Alice]]"], "app_rate": 1}, {"expansion": ["[[Bob]]"], "app_rate": 1}, {"expansion": ["someone"], "app_rate": 1}]},
		"Mood": {"markup": {"mood": ["calm"]}, "rules": [{"expansion": ["[[Adverb]]"], "app_rate": 1}]},
		"Adverb": {"rules": [{"expansion": ["very"], "app_rate": 1}, {"expansion": ["[[Bob]]"], "app_rate": 1}]},
		"Alice": {"markup": {"character": ["alice"]}, "rules": [{"expansion": ["Alice"], "app_rate": 1}]},
		"Bob": {"markup": {"character": ["bob"]}, "rules": [{"expansion": ["Bob"], "app_rate": 1}]}
	}}`

	_, seq := enumerate(t, doc, paths.Options{Workers: 1})
	for _, workers := range []int{2, 4, 16} {
		_, par := enumerate(t, doc, paths.Options{Workers: workers})
		assert.Equal(t, seq.Paths, par.Paths, "workers=%d", workers)
	}
	assert.NotEmpty(t, seq.Paths)
}

func TestEnumerateNonMeaningfulRuleYieldsEmptyPath(t *testing.T) {
	doc := `{"nonterminals": {
		"Line": {"deep": true, "rules": [{"expansion": ["[[Word]]"], "app_rate": 1}]},
		"Word": {"rules": [{"expansion": ["a"], "app_rate": 1}]}
	}}`
	_, res := enumerate(t, doc, paths.Options{})

	// Nothing is meaningful, so the only path is the empty one
	assert.Equal(t, []string{""}, res.Paths)
}

func TestEnumerateTaggedTopLevel(t *testing.T) {
	doc := `{"nonterminals": {
		"Line": {"deep": true, "markup": {"act": ["greet"]}, "rules": [{"expansion": ["hi"], "app_rate": 1}, {"expansion": ["hey"], "app_rate": 1}]}
	}}`
	_, res := enumerate(t, doc, paths.Options{})

	// START -> [[Line]] is meaningful through Line's tag; Line's own rules are not
	assert.Equal(t, []string{"2"}, res.Paths)
}

func TestEnumerateSymbolWithoutRules(t *testing.T) {
	doc := `{"nonterminals": {
		"Line": {"deep": true, "rules": [{"expansion": ["[[Ghost]]", "[[Tag]]"], "app_rate": 1}]},
		"Ghost": {"markup": {"kind": ["ghost"]}, "rules": []},
		"Tag": {"markup": {"kind": ["tag"]}, "rules": [{"expansion": ["x"], "app_rate": 1}]}
	}}`
	_, res := enumerate(t, doc, paths.Options{})

	// Ghost has no rules, so the product is empty and Line's rule stands alone
	assert.Equal(t, []string{"2,0"}, res.Paths)
}

func TestEnumerateDropsEmptyMembers(t *testing.T) {
	doc := `{"nonterminals": {
		"Line": {"deep": true, "rules": [{"expansion": ["[[A]]", " ", "[[B]]"], "app_rate": 1}]},
		"A": {"markup": {"a": ["1"]}, "rules": [{"expansion": ["a"], "app_rate": 1}]},
		"B": {"rules": [{"expansion": ["[[C]]"], "app_rate": 1}, {"expansion": ["[[D]]"], "app_rate": 1}]},
		"C": {"markup": {"c": ["1"]}, "rules": [{"expansion": ["c"], "app_rate": 1}]},
		"D": {"markup": {"d": ["1"]}, "rules": [{"expansion": ["d"], "app_rate": 1}]}
	}}`
	g, res := enumerate(t, doc, paths.Options{})

	startRule := g.Start().Rules[0]
	require.Equal(t, 6, startRule)
	// A contributes "" which is dropped; B contributes its two rules
	assert.Equal(t, []string{"6,0,2", "6,0,3"}, res.Paths)
}

func TestEnumerateEmptyGrammar(t *testing.T) {
	_, res := enumerate(t, `{"nonterminals": {}}`, paths.Options{Workers: 4})
	assert.Empty(t, res.Paths)
}

func TestEnumerateRequiresStart(t *testing.T) {
	g := rdxtest.MustBuild(t, rdxtest.GreetingJSON)
	_, err := paths.Enumerate(context.Background(), g, semantics.Analyze(g), paths.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start symbol")
}

func TestEnumerateCancelled(t *testing.T) {
	g := rdxtest.MustBuildWithStart(t, rdxtest.GreetingJSON)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := paths.Enumerate(ctx, g, semantics.Analyze(g), paths.Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEnumerateTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := zap.New(core).Sugar()

	_, res := enumerate(t, rdxtest.GreetingJSON, paths.Options{Logger: log})
	require.Len(t, res.Paths, 4)

	symbolEntries := logs.FilterMessageSnippet("from symbol").All()
	require.NotEmpty(t, symbolEntries)
	assert.Equal(t, "Collecting paths descending from symbol [[START]]", symbolEntries[0].Message)
	assert.Equal(t, int64(0), symbolEntries[0].ContextMap()["depth"])

	greeting := logs.FilterMessageSnippet("[[Greeting]]").All()
	require.Len(t, greeting, 1)
	assert.Equal(t, "    Collecting paths descending from symbol [[Greeting]]", greeting[0].Message)

	assert.NotEmpty(t, logs.FilterMessageSnippet("from rule #6").All())
}

func TestEnumerateNoTraceAboveDebug(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, _ = enumerate(t, rdxtest.GreetingJSON, paths.Options{Logger: zap.New(core).Sugar()})
	assert.Zero(t, logs.Len())
}

func TestEncodeDecode(t *testing.T) {
	tests := []struct {
		path string
		ids  []int
	}{
		{"", nil},
		{"6", []int{6}},
		{"6,0,2", []int{6, 0, 2}},
		{"12,113,7", []int{12, 113, 7}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			ids, err := paths.Decode(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.ids, ids)
			assert.Equal(t, tt.path, paths.Encode(ids))
		})
	}
}

func TestDecodeInvalid(t *testing.T) {
	for _, bad := range []string{"a", "1,,2", "1,-2", ",", "3,x"} {
		_, err := paths.Decode(bad)
		require.Error(t, err, bad)
		assert.True(t, errors.Is(err, errors.ErrFormat), bad)
	}
}

func TestPathRoundTrip(t *testing.T) {
	// Every enumerated path decodes to meaningful rule ids of the grammar
	g, res := enumerate(t, rdxtest.GreetingJSON, paths.Options{})
	m := semantics.Analyze(g)
	for _, p := range res.Paths {
		ids, err := paths.Decode(p)
		require.NoError(t, err)
		for _, id := range ids {
			require.NotNil(t, g.Rule(id))
			assert.True(t, m.Rule(id))
		}
		assert.Equal(t, p, paths.Encode(ids))
	}
}
