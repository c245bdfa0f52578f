// Package validate checks a built grammar before any analysis runs.
//
// A cycle (a symbol that can derive itself) is fatal: the memoized traversals
// downstream assume an acyclic graph. A grammar with no top-level symbol is
// accepted with a warning; it compiles to empty artifacts.
package validate

import (
	"fmt"
	"math/big"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
)

// CycleError names a symbol that can derive itself and the rule closing the cycle
type CycleError struct {
	Symbol   string
	SymbolID int
	Rule     string
	RuleID   int
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("a cycle was detected at [[%s]], which recursively references itself via the variant '%s'",
		e.Symbol, e.Rule)
}

// Warning is a non-fatal finding
type Warning interface {
	Message() string
}

// NoTopLevelSymbolWarning reports a grammar without any symbol marked top-level
type NoTopLevelSymbolWarning struct{}

// Message describes the warning
func (NoTopLevelSymbolWarning) Message() string {
	return "there are no top-level nonterminal symbols, so no content can be generated"
}

func (w NoTopLevelSymbolWarning) String() string {
	return w.Message()
}

// Report is the outcome of Check
type Report struct {
	Errors   []error
	Warnings []Warning

	reach []*big.Int // descendant bitset per symbol; nil where unknown
}

// OK reports whether the grammar passed every fatal check
func (r *Report) OK() bool {
	return len(r.Errors) == 0
}

// Err joins the fatal errors, or returns nil
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	if len(r.Errors) == 1 {
		return r.Errors[0]
	}
	return errors.Join(r.Errors...)
}

// Reachable returns the ids of the symbols reachable from symbolID through rule bodies,
// ascending. It returns nil when the set is unknown because a cycle stopped the traversal.
func (r *Report) Reachable(symbolID int) []int {
	if symbolID < 0 || symbolID >= len(r.reach) || r.reach[symbolID] == nil {
		return nil
	}
	set := r.reach[symbolID]
	ids := []int{}
	for i := 0; i < set.BitLen(); i++ {
		if set.Bit(i) == 1 {
			ids = append(ids, i)
		}
	}
	return ids
}

type visitState uint8

const (
	stateVisiting visitState = iota + 1
	stateDone
)

// Check runs the cycle check and the top-level existence check.
// Only the first cycle found is reported.
func Check(g *grammar.Grammar) *Report {
	symbols := g.Symbols()
	report := &Report{reach: make([]*big.Int, len(symbols))}

	states := make([]visitState, len(symbols))

	var visit func(id int) *CycleError
	visit = func(id int) *CycleError {
		states[id] = stateVisiting
		descendants := new(big.Int)
		for _, ruleID := range symbols[id].Rules {
			rule := g.Rule(ruleID)
			for _, child := range rule.References() {
				switch states[child] {
				case stateVisiting:
					return &CycleError{
						Symbol:   symbols[child].Name,
						SymbolID: child,
						Rule:     rule.String(),
						RuleID:   rule.ID,
					}
				case 0:
					if cycle := visit(child); cycle != nil {
						return cycle
					}
				}
				descendants.SetBit(descendants, child, 1)
				descendants.Or(descendants, report.reach[child])
			}
		}
		states[id] = stateDone
		report.reach[id] = descendants
		return nil
	}

	for _, s := range symbols {
		if states[s.ID] != 0 {
			continue
		}
		if cycle := visit(s.ID); cycle != nil {
			err := errors.Mark(cycle, errors.ErrCycle)
			err = errors.WithHintf(err, "remove the reference to [[%s]] from '%s' or one of its descendants",
				cycle.Symbol, cycle.Rule)
			report.Errors = append(report.Errors, err)
			break
		}
	}

	if len(g.TopLevel()) == 0 {
		report.Warnings = append(report.Warnings, NoTopLevelSymbolWarning{})
	}

	return report
}
