package bundle

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/meaning"
	"github.com/teranos/reductionist/pathdict"
	"github.com/teranos/reductionist/paths"
)

// Bundle is a compiled bundle loaded back from disk
type Bundle struct {
	Name       string
	Dir        string
	Grammar    *GrammarFile
	Dictionary *pathdict.Dictionary
	Meanings   *meaning.Set
}

// Match is the answer to a tag-set query
type Match struct {
	Meaning *meaning.Meaning
	Paths   []PathMatch
}

// PathMatch is one recipe for a meaning: its dictionary key, path string and rule ids
type PathMatch struct {
	Key     int
	Path    string
	RuleIDs []int
}

// Open loads the .grammar, .trie and .meanings artifacts of bundle name in dir
func Open(dir, name string) (*Bundle, error) {
	b := &Bundle{Name: name, Dir: dir}

	data, err := os.ReadFile(filepath.Join(dir, name+ExtGrammar))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s%s", name, ExtGrammar)
	}
	var gf GrammarFile
	if err := json.Unmarshal(data, &gf); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "failed to parse %s%s", name, ExtGrammar), errors.ErrFormat)
	}
	b.Grammar = &gf

	trie, err := os.Open(filepath.Join(dir, name+ExtTrie))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s%s", name, ExtTrie)
	}
	defer trie.Close()
	b.Dictionary, err = pathdict.Read(trie)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s%s", name, ExtTrie)
	}

	mf, err := os.Open(filepath.Join(dir, name+ExtMeanings))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s%s", name, ExtMeanings)
	}
	defer mf.Close()
	loaded, err := ReadMeanings(mf, gf.IDToTag)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s%s", name, ExtMeanings)
	}
	for _, m := range loaded {
		for _, key := range m.Paths {
			if key < 0 || key >= b.Dictionary.Len() {
				return nil, errors.Mark(errors.Newf("meaning %d references path key %d, dictionary holds %d",
					m.ID, key, b.Dictionary.Len()), errors.ErrFormat)
			}
		}
	}
	b.Meanings, err = meaning.NewSet(loaded)
	if err != nil {
		return nil, errors.Mark(err, errors.ErrFormat)
	}

	return b, nil
}

// Lookup returns the meaning carrying exactly tags and its decoded paths
func (b *Bundle) Lookup(tags []string) (*Match, error) {
	m, ok := b.Meanings.ByTags(tags)
	if !ok {
		return nil, errors.WithHint(
			errors.NewNotFoundError("no expressible meaning has exactly the tags [%s]", strings.Join(tags, ", ")),
			"tags are written tagset:value; every tag of the meaning must be given")
	}

	match := &Match{Meaning: m}
	for _, key := range m.Paths {
		path, err := b.Dictionary.String(key)
		if err != nil {
			return nil, err
		}
		ids, err := paths.Decode(path)
		if err != nil {
			return nil, err
		}
		match.Paths = append(match.Paths, PathMatch{Key: key, Path: path, RuleIDs: ids})
	}
	return match, nil
}

// Tags returns every tag of the bundle ordered by tag id
func (b *Bundle) Tags() []string {
	out := make([]string, len(b.Grammar.IDToTag))
	for key, tag := range b.Grammar.IDToTag {
		id, err := strconv.Atoi(key)
		if err == nil && id >= 0 && id < len(out) {
			out[id] = tag
		}
	}
	return out
}

// Stats reads the bundle's .stats artifact
func (b *Bundle) Stats() (*Stats, error) {
	f, err := os.Open(filepath.Join(b.Dir, b.Name+ExtStats))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s%s", b.Name, ExtStats)
	}
	defer f.Close()
	return ReadStats(f)
}
