package grammar

import (
	"strconv"
	"strings"
)

// StartSymbolName is the name of the synthesized start symbol
const StartSymbolName = "START"

// ElementKind distinguishes terminal literals from symbol references in a rule body
type ElementKind uint8

const (
	TerminalElement ElementKind = iota
	SymbolElement
)

// Element is one item of a rule body: a terminal literal or a reference to a symbol
type Element struct {
	Kind   ElementKind
	Text   string // literal text, set for terminals
	Symbol int    // symbol id, set for references
}

// Terminal returns a terminal body element
func Terminal(text string) Element {
	return Element{Kind: TerminalElement, Text: text}
}

// Ref returns a body element referencing the symbol with the given id
func Ref(symbolID int) Element {
	return Element{Kind: SymbolElement, Symbol: symbolID}
}

// IsTerminal reports whether the element is a literal
func (e Element) IsTerminal() bool {
	return e.Kind == TerminalElement
}

// Symbol is a nonterminal symbol
type Symbol struct {
	ID       int
	Name     string
	TopLevel bool     // expansions are complete outputs ("deep" in the authoring tool)
	IsStart  bool     // the synthesized start symbol
	Tags     []string // "tagset:value", de-duplicated, first-seen order
	Rules    []int    // owned rule ids, in declaration order
}

// HasTags reports whether the symbol carries at least one tag
func (s *Symbol) HasTags() bool {
	return len(s.Tags) > 0
}

// String renders the symbol as a reference
func (s *Symbol) String() string {
	return "[[" + s.Name + "]]"
}

// Rule is a production rule
type Rule struct {
	ID        int
	Head      int
	Body      []Element
	Frequency float64  // application frequency relative to sibling rules
	Tags      []string // union of the tags of referenced symbols, first-seen order
	Terminal  bool     // body has no symbol references

	headName string
	source   []string // body tokens as authored
}

// References returns the ids of the symbols referenced by the body, in body order
func (r *Rule) References() []int {
	var ids []int
	for _, el := range r.Body {
		if !el.IsTerminal() {
			ids = append(ids, el.Symbol)
		}
	}
	return ids
}

// String renders the rule as "[[Head]] --> body" with the body as authored
func (r *Rule) String() string {
	return "[[" + r.headName + "]] --> " + strings.Join(r.source, "")
}

// Grammar owns all symbols, rules and the tag id bijection
type Grammar struct {
	symbols   []*Symbol
	rules     []*Rule
	byName    map[string]int
	tagToID   map[string]int
	idToTag   []string
	terminals []string
	start     int
}

// Symbols returns all symbols ordered by id. The slice must not be modified.
func (g *Grammar) Symbols() []*Symbol {
	return g.symbols
}

// Rules returns all rules ordered by id. The slice must not be modified.
func (g *Grammar) Rules() []*Rule {
	return g.rules
}

// Symbol returns the symbol with the given id, or nil
func (g *Grammar) Symbol(id int) *Symbol {
	if id < 0 || id >= len(g.symbols) {
		return nil
	}
	return g.symbols[id]
}

// Rule returns the rule with the given id, or nil
func (g *Grammar) Rule(id int) *Rule {
	if id < 0 || id >= len(g.rules) {
		return nil
	}
	return g.rules[id]
}

// SymbolByName looks a symbol up by name
func (g *Grammar) SymbolByName(name string) (*Symbol, bool) {
	id, ok := g.byName[normalize(name)]
	if !ok {
		return nil, false
	}
	return g.symbols[id], true
}

// Start returns the synthesized start symbol, or nil before SynthesizeStart
func (g *Grammar) Start() *Symbol {
	if g.start < 0 {
		return nil
	}
	return g.symbols[g.start]
}

// TagID returns the id assigned to a "tagset:value" string
func (g *Grammar) TagID(tag string) (int, bool) {
	id, ok := g.tagToID[normalize(tag)]
	return id, ok
}

// Tag returns the tag string for an id
func (g *Grammar) Tag(id int) (string, bool) {
	if id < 0 || id >= len(g.idToTag) {
		return "", false
	}
	return g.idToTag[id], true
}

// Tags returns every tag ordered by id
func (g *Grammar) Tags() []string {
	return g.idToTag
}

// TagKey renders a tag id the way the runtime expects it
func TagKey(id int) string {
	return strconv.Itoa(id)
}

// TopLevel returns the authored symbols marked as top-level, excluding the start symbol
func (g *Grammar) TopLevel() []*Symbol {
	var out []*Symbol
	for _, s := range g.symbols {
		if s.TopLevel && !s.IsStart {
			out = append(out, s)
		}
	}
	return out
}

// Terminals returns the distinct terminal literals in first-seen order
func (g *Grammar) Terminals() []string {
	return g.terminals
}
