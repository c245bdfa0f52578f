package testing

import (
	"strings"
	"testing"

	"github.com/teranos/reductionist/grammar"
)

// GreetingJSON is a small grammar with two top-level variants and two tagged names.
// It compiles to 4 outputs and 2 expressible meanings with 2 paths each.
const GreetingJSON = `{
  "nonterminals": {
    "Greeting": {
      "deep": true,
      "markup": {},
      "rules": [
        {"expansion": ["Hello, ", "[[Name]]"], "app_rate": 1},
        {"expansion": ["Hi, ", "[[Name]]"], "app_rate": 1}
      ]
    },
    "Name": {
      "deep": false,
      "markup": {},
      "rules": [
        {"expansion": ["[[Alice]]"], "app_rate": 1},
        {"expansion": ["[[Bob]]"], "app_rate": 1}
      ]
    },
    "Alice": {
      "deep": false,
      "markup": {"character": ["alice"]},
      "rules": [{"expansion": ["Alice"], "app_rate": 1}]
    },
    "Bob": {
      "deep": false,
      "markup": {"character": ["bob"]},
      "rules": [{"expansion": ["Bob"], "app_rate": 1}]
    }
  }
}`

// GreetingYAML is GreetingJSON in YAML form
const GreetingYAML = `nonterminals:
  Greeting:
    deep: true
    markup: {}
    rules:
      - expansion: ["Hello, ", "[[Name]]"]
        app_rate: 1
      - expansion: ["Hi, ", "[[Name]]"]
        app_rate: 1
  Name:
    deep: false
    rules:
      - expansion: ["[[Alice]]"]
        app_rate: 1
      - expansion: ["[[Bob]]"]
        app_rate: 1
  Alice:
    markup:
      character: [alice]
    rules:
      - expansion: [Alice]
        app_rate: 1
  Bob:
    markup:
      character: [bob]
    rules:
      - expansion: [Bob]
        app_rate: 1
`

// CycleJSON has a two-symbol cycle: A references B, B references A
const CycleJSON = `{
  "nonterminals": {
    "A": {"deep": true, "markup": {}, "rules": [{"expansion": ["[[B]]"], "app_rate": 1}]},
    "B": {"deep": false, "markup": {}, "rules": [{"expansion": ["[[A]]"], "app_rate": 1}]}
  }
}`

// NoTopLevelJSON has no symbol marked deep
const NoTopLevelJSON = `{
  "nonterminals": {
    "Name": {"deep": false, "markup": {"character": ["alice"]}, "rules": [{"expansion": ["Alice"], "app_rate": 1}]}
  }
}`

// MustBuild decodes and builds a JSON grammar, failing the test on error
func MustBuild(t *testing.T, doc string) *grammar.Grammar {
	t.Helper()

	spec, err := grammar.Decode(strings.NewReader(doc), grammar.FormatJSON)
	if err != nil {
		t.Fatalf("Failed to decode grammar: %v", err)
	}
	g, err := grammar.Build(spec)
	if err != nil {
		t.Fatalf("Failed to build grammar: %v", err)
	}
	return g
}

// MustBuildWithStart builds a JSON grammar and synthesizes its start symbol
func MustBuildWithStart(t *testing.T, doc string) *grammar.Grammar {
	t.Helper()

	g := MustBuild(t, doc)
	if err := g.SynthesizeStart(); err != nil {
		t.Fatalf("Failed to synthesize start symbol: %v", err)
	}
	return g
}
