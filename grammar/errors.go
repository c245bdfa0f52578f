package grammar

import (
	"fmt"

	"github.com/teranos/reductionist/errors"
)

// LoadError reports a grammar document that could not be read or parsed
type LoadError struct {
	Path  string
	Cause error
}

func (e *LoadError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("cannot load grammar: %v", e.Cause)
	}
	return fmt.Sprintf("cannot load grammar %s: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying error for errors.Is/As compatibility
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ReferenceError reports a rule body naming a symbol that is not declared
type ReferenceError struct {
	Rule string // rendered rule
	Name string // missing symbol name
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("rule '%s' references undeclared symbol [[%s]]", e.Rule, e.Name)
}

func newLoadError(path string, cause error) error {
	err := errors.Mark(&LoadError{Path: path, Cause: cause}, errors.ErrLoad)
	return errors.WithHint(err, "export the grammar again from the authoring tool")
}

func newReferenceError(rule, name string) error {
	err := errors.Mark(&ReferenceError{Rule: rule, Name: name}, errors.ErrReference)
	return errors.WithHintf(err, "declare a nonterminal named %q or fix the reference", name)
}
