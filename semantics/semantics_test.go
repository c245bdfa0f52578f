package semantics_test

import (
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/reductionist/grammar"
	rdxtest "github.com/teranos/reductionist/internal/testing"
	"github.com/teranos/reductionist/semantics"
)

func TestAnalyzeGreeting(t *testing.T) {
	g := rdxtest.MustBuildWithStart(t, rdxtest.GreetingJSON)
	m := semantics.Analyze(g)

	// Greeting and Name rules lead to tagged symbols; the leaf rules do not
	for id, want := range []bool{true, true, true, true, false, false, true} {
		assert.Equal(t, want, m.Rule(id), "rule %d", id)
	}
	// Alice and Bob are meaningful through their tags alone
	for id, want := range []bool{true, true, true, true, true} {
		assert.Equal(t, want, m.Symbol(id), "symbol %d", id)
	}
	assert.Equal(t, 5, m.CountRules())
	assert.Equal(t, 5, m.CountSymbols())
	assert.False(t, m.Rule(-1))
	assert.False(t, m.Symbol(100))
}

func TestAnalyzeUntaggedGrammar(t *testing.T) {
	doc := `{"nonterminals": {
		"Line": {"deep": true, "rules": [{"expansion": ["[[Word]]", " ", "[[Word]]"], "app_rate": 1}]},
		"Word": {"rules": [{"expansion": ["a"], "app_rate": 1}, {"expansion": ["b"], "app_rate": 1}]}
	}}`
	g := rdxtest.MustBuildWithStart(t, doc)
	m := semantics.Analyze(g)

	assert.Zero(t, m.CountRules())
	assert.Zero(t, m.CountSymbols())
}

func TestAnalyzeDeepTag(t *testing.T) {
	// Only the deepest symbol is tagged; meaningfulness propagates up every level
	doc := `{"nonterminals": {
		"L0": {"deep": true, "rules": [{"expansion": ["[[L1]]"], "app_rate": 1}, {"expansion": ["plain"], "app_rate": 1}]},
		"L1": {"rules": [{"expansion": ["[[L2]]"], "app_rate": 1}]},
		"L2": {"rules": [{"expansion": ["[[L3]]"], "app_rate": 1}]},
		"L3": {"markup": {"depth": ["3"]}, "rules": [{"expansion": ["x"], "app_rate": 1}]}
	}}`
	g := rdxtest.MustBuildWithStart(t, doc)
	m := semantics.Analyze(g)

	assert.True(t, m.Rule(0))
	assert.False(t, m.Rule(1))
	assert.True(t, m.Rule(2))
	assert.True(t, m.Rule(3)) // L2 -> [[L3]] carries L3's tag
	assert.False(t, m.Rule(4))
	assert.True(t, m.Symbol(3))
}

// recurrence checks that the table satisfies the defining equations exactly
func recurrence(t *testing.T, g *grammar.Grammar, m *semantics.Meaningfulness) {
	t.Helper()
	for _, r := range g.Rules() {
		want := len(r.Tags) > 0
		for _, child := range r.References() {
			for _, childRule := range g.Symbol(child).Rules {
				want = want || m.Rule(childRule)
			}
		}
		assert.Equal(t, want, m.Rule(r.ID), "rule %s", r)
	}
	for _, s := range g.Symbols() {
		want := s.HasTags()
		for _, id := range s.Rules {
			want = want || m.Rule(id)
		}
		assert.Equal(t, want, m.Symbol(s.ID), "symbol %s", s)
	}
}

func TestMeaningfulnessRecurrence(t *testing.T) {
	docs := []string{rdxtest.GreetingJSON, rdxtest.NoTopLevelJSON, layeredGrammar(6, 3)}
	for i, doc := range docs {
		t.Run(fmt.Sprintf("grammar-%d", i), func(t *testing.T) {
			g := rdxtest.MustBuildWithStart(t, doc)
			recurrence(t, g, semantics.Analyze(g))
		})
	}
}

// layeredGrammar builds a DAG of depth layers, each symbol referencing every symbol of the next
// layer; every third symbol is tagged
func layeredGrammar(depth, width int) string {
	var b strings.Builder
	b.WriteString(`{"nonterminals": {`)
	first := true
	for layer := 0; layer < depth; layer++ {
		for i := 0; i < width; i++ {
			if !first {
				b.WriteString(",")
			}
			first = false
			markup := "{}"
			if (layer*width+i)%3 == 2 {
				markup = fmt.Sprintf(`{"layer": ["%d"]}`, layer)
			}
			var rules []string
			if layer == depth-1 {
				rules = append(rules, `{"expansion": ["leaf"], "app_rate": 1}`)
			} else {
				for j := 0; j < width; j++ {
					rules = append(rules, fmt.Sprintf(`{"expansion": ["[[S%d_%d]]"], "app_rate": 1}`, layer+1, j))
				}
			}
			fmt.Fprintf(&b, `"S%d_%d": {"deep": %t, "markup": %s, "rules": [%s]}`,
				layer, i, layer == 0, markup, strings.Join(rules, ","))
		}
	}
	b.WriteString("}}")
	return b.String()
}

func TestCountVariantsGreeting(t *testing.T) {
	g := rdxtest.MustBuildWithStart(t, rdxtest.GreetingJSON)
	vc := semantics.CountVariants(g)

	assert.Equal(t, int64(4), vc.Total().Int64())
	assert.Equal(t, int64(4), vc.Symbol(0).Int64())
	assert.Equal(t, int64(2), vc.Symbol(1).Int64())
	assert.Equal(t, int64(1), vc.Symbol(2).Int64())
	assert.Equal(t, int64(2), vc.Rule(0).Int64())
	assert.Equal(t, int64(1), vc.Rule(4).Int64())
	assert.Equal(t, int64(4), vc.Rule(6).Int64())
}

func TestCountVariantsProductAndSum(t *testing.T) {
	doc := `{"nonterminals": {
		"Line": {"deep": true, "rules": [
			{"expansion": ["[[Word]]", " and ", "[[Word]]", " or ", "[[Pair]]"], "app_rate": 1},
			{"expansion": ["silence"], "app_rate": 1}
		]},
		"Word": {"rules": [{"expansion": ["a"], "app_rate": 1}, {"expansion": ["b"], "app_rate": 1}, {"expansion": ["c"], "app_rate": 1}]},
		"Pair": {"rules": [{"expansion": ["[[Word]]", "[[Word]]"], "app_rate": 1}]},
		"Empty": {"rules": []}
	}}`
	g := rdxtest.MustBuildWithStart(t, doc)
	vc := semantics.CountVariants(g)

	// 3 * 3 * 9 + 1
	assert.Equal(t, int64(82), vc.Symbol(0).Int64())
	assert.Equal(t, int64(9), vc.Symbol(2).Int64())
	assert.Equal(t, int64(0), vc.Symbol(3).Int64())
	assert.Equal(t, int64(82), vc.Total().Int64())
}

func TestCountVariantsArbitraryPrecision(t *testing.T) {
	// Each level squares the count of the level below: 2^(2^7) overflows int64
	var b strings.Builder
	b.WriteString(`{"nonterminals": {"L0": {"deep": true, "rules": [{"expansion": ["[[L1]]", "[[L1]]"], "app_rate": 1}]}`)
	const levels = 7
	for i := 1; i < levels; i++ {
		fmt.Fprintf(&b, `, "L%d": {"rules": [{"expansion": ["[[L%d]]", "[[L%d]]"], "app_rate": 1}]}`, i, i+1, i+1)
	}
	fmt.Fprintf(&b, `, "L%d": {"rules": [{"expansion": ["x"], "app_rate": 1}, {"expansion": ["y"], "app_rate": 1}]}}}`, levels)

	g := rdxtest.MustBuildWithStart(t, b.String())
	vc := semantics.CountVariants(g)

	want := new(big.Int).Lsh(big.NewInt(1), 1<<levels)
	require.Equal(t, 0, want.Cmp(vc.Total()), "got %s", vc.Total())
	assert.False(t, vc.Total().IsInt64())
}

func TestCountVariantsReturnsCopies(t *testing.T) {
	g := rdxtest.MustBuildWithStart(t, rdxtest.GreetingJSON)
	vc := semantics.CountVariants(g)

	n := vc.Symbol(0)
	n.SetInt64(1000)
	assert.Equal(t, int64(4), vc.Symbol(0).Int64())
	assert.Equal(t, int64(0), vc.Rule(-3).Int64())
}

func TestCountVariantsWithoutStart(t *testing.T) {
	g := rdxtest.MustBuild(t, rdxtest.GreetingJSON)
	vc := semantics.CountVariants(g)
	assert.Equal(t, int64(0), vc.Total().Int64())
	assert.Equal(t, int64(4), vc.Symbol(0).Int64())
}
