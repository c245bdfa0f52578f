// Package bundle writes and reads the compiled artifacts of a grammar.
//
// A bundle named N in directory D is four files:
//
//	D/N.grammar   JSON grammar with ids and meaningfulness, for the runtime
//	D/N.trie      path dictionary (see package pathdict)
//	D/N.meanings  one line per meaning: id, path keys, tag ids
//	D/N.stats     output and meaning totals, per-symbol and per-rule variant counts
package bundle

import (
	"path/filepath"

	"github.com/teranos/reductionist/grammar"
	"github.com/teranos/reductionist/meaning"
	"github.com/teranos/reductionist/pathdict"
	"github.com/teranos/reductionist/semantics"
)

// Artifact file extensions
const (
	ExtGrammar  = ".grammar"
	ExtTrie     = ".trie"
	ExtMeanings = ".meanings"
	ExtStats    = ".stats"
)

// Extensions lists the artifact extensions in write order
var Extensions = []string{ExtGrammar, ExtTrie, ExtMeanings, ExtStats}

// Artifacts is everything a compilation produces
type Artifacts struct {
	Grammar        *grammar.Grammar
	Meaningfulness *semantics.Meaningfulness
	Variants       *semantics.VariantCounts
	Dictionary     *pathdict.Dictionary
	Meanings       *meaning.Set
	Fingerprint    string // of the input document; omitted from stats when empty
}

// Paths returns the artifact paths of bundle name in dir, in write order
func Paths(dir, name string) []string {
	out := make([]string, len(Extensions))
	for i, ext := range Extensions {
		out[i] = filepath.Join(dir, name+ext)
	}
	return out
}
