// Package semantics computes the derived per-rule and per-symbol facts the
// compiler needs: which rules and symbols carry semantic variation, and how
// many distinct outputs each can generate.
//
// Both analyses are memoized recursions over the grammar graph and assume it
// has passed validation (no cycles).
package semantics

import "github.com/teranos/reductionist/grammar"

type tristate uint8

const (
	unknown tristate = iota
	no
	yes
)

// Meaningfulness records which rules and symbols are semantically meaningful.
//
// A rule is meaningful if it has a tag, or if some symbol in its body heads a
// meaningful rule. A symbol is meaningful if it has a tag or a meaningful rule.
type Meaningfulness struct {
	rules   []bool
	symbols []bool
}

// Analyze classifies every rule and symbol of g. Each node is computed once.
func Analyze(g *grammar.Grammar) *Meaningfulness {
	ruleMemo := make([]tristate, len(g.Rules()))

	var ruleMeaningful func(id int) bool
	ruleMeaningful = func(id int) bool {
		switch ruleMemo[id] {
		case yes:
			return true
		case no:
			return false
		}

		rule := g.Rule(id)
		result := len(rule.Tags) > 0
		if !result {
		body:
			for _, child := range rule.References() {
				for _, childRule := range g.Symbol(child).Rules {
					if ruleMeaningful(childRule) {
						result = true
						break body
					}
				}
			}
		}

		if result {
			ruleMemo[id] = yes
		} else {
			ruleMemo[id] = no
		}
		return result
	}

	m := &Meaningfulness{
		rules:   make([]bool, len(g.Rules())),
		symbols: make([]bool, len(g.Symbols())),
	}
	for _, r := range g.Rules() {
		m.rules[r.ID] = ruleMeaningful(r.ID)
	}
	for _, s := range g.Symbols() {
		meaningful := s.HasTags()
		for _, id := range s.Rules {
			if meaningful {
				break
			}
			meaningful = m.rules[id]
		}
		m.symbols[s.ID] = meaningful
	}
	return m
}

// Rule reports whether the rule with the given id is meaningful
func (m *Meaningfulness) Rule(id int) bool {
	return id >= 0 && id < len(m.rules) && m.rules[id]
}

// Symbol reports whether the symbol with the given id is meaningful
func (m *Meaningfulness) Symbol(id int) bool {
	return id >= 0 && id < len(m.symbols) && m.symbols[id]
}

// CountRules returns the number of meaningful rules
func (m *Meaningfulness) CountRules() int {
	n := 0
	for _, v := range m.rules {
		if v {
			n++
		}
	}
	return n
}

// CountSymbols returns the number of meaningful symbols
func (m *Meaningfulness) CountSymbols() int {
	n := 0
	for _, v := range m.symbols {
		if v {
			n++
		}
	}
	return n
}
