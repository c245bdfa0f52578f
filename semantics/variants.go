package semantics

import (
	"math/big"

	"github.com/teranos/reductionist/grammar"
)

// VariantCounts holds the number of distinct terminal outputs each rule and symbol can generate.
// Counts grow multiplicatively with nesting, so they are arbitrary precision.
type VariantCounts struct {
	rules   []*big.Int
	symbols []*big.Int
	start   int
}

// CountVariants computes variant counts for every rule and symbol.
// A terminal contributes 1, a rule multiplies over its body and a symbol sums over its rules.
// A symbol without rules counts 0.
func CountVariants(g *grammar.Grammar) *VariantCounts {
	vc := &VariantCounts{
		rules:   make([]*big.Int, len(g.Rules())),
		symbols: make([]*big.Int, len(g.Symbols())),
		start:   -1,
	}
	if start := g.Start(); start != nil {
		vc.start = start.ID
	}

	var symbolCount func(id int) *big.Int
	var ruleCount func(id int) *big.Int

	symbolCount = func(id int) *big.Int {
		if n := vc.symbols[id]; n != nil {
			return n
		}
		total := new(big.Int)
		for _, ruleID := range g.Symbol(id).Rules {
			total.Add(total, ruleCount(ruleID))
		}
		vc.symbols[id] = total
		return total
	}

	ruleCount = func(id int) *big.Int {
		if n := vc.rules[id]; n != nil {
			return n
		}
		product := big.NewInt(1)
		for _, el := range g.Rule(id).Body {
			if !el.IsTerminal() {
				product.Mul(product, symbolCount(el.Symbol))
			}
		}
		vc.rules[id] = product
		return product
	}

	for _, s := range g.Symbols() {
		symbolCount(s.ID)
	}
	for _, r := range g.Rules() {
		ruleCount(r.ID)
	}
	return vc
}

// Rule returns the variant count of a rule
func (vc *VariantCounts) Rule(id int) *big.Int {
	if id < 0 || id >= len(vc.rules) {
		return new(big.Int)
	}
	return new(big.Int).Set(vc.rules[id])
}

// Symbol returns the variant count of a symbol
func (vc *VariantCounts) Symbol(id int) *big.Int {
	if id < 0 || id >= len(vc.symbols) {
		return new(big.Int)
	}
	return new(big.Int).Set(vc.symbols[id])
}

// Total returns the variant count of the start symbol: the number of outputs of the grammar
func (vc *VariantCounts) Total() *big.Int {
	if vc.start < 0 {
		return new(big.Int)
	}
	return vc.Symbol(vc.start)
}
