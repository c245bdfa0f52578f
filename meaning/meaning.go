// Package meaning groups enumerated paths by the exact tag set they produce.
//
// Each distinct tag set is an expressible meaning: content the runtime can be
// asked for. Its paths are the recipes for producing that content.
package meaning

import (
	"sort"
	"strings"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
	"github.com/teranos/reductionist/pathdict"
	"github.com/teranos/reductionist/paths"
)

// Meaning is one expressible meaning
type Meaning struct {
	ID    int
	Tags  []string // sorted
	Paths []int    // path dictionary keys, ascending
}

// Set is an ordered collection of meanings with a tag-set index
type Set struct {
	meanings []*Meaning
	byTags   map[string]*Meaning
}

// Cluster scans the dictionary in key order and groups paths by tag set.
// Meaning ids follow first occurrence.
func Cluster(g *grammar.Grammar, d *pathdict.Dictionary) (*Set, error) {
	s := &Set{byTags: make(map[string]*Meaning)}

	var err error
	d.Each(func(e pathdict.Entry) bool {
		var ruleIDs []int
		ruleIDs, err = paths.Decode(e.Path)
		if err != nil {
			return false
		}

		tagSet := make(map[string]struct{})
		for _, id := range ruleIDs {
			rule := g.Rule(id)
			if rule == nil {
				err = errors.AssertionFailedf("path %q names unknown rule %d", e.Path, id)
				return false
			}
			for _, tag := range rule.Tags {
				tagSet[tag] = struct{}{}
			}
		}

		tags := make([]string, 0, len(tagSet))
		for tag := range tagSet {
			tags = append(tags, tag)
		}
		sort.Strings(tags)

		key := setKey(tags)
		if m, ok := s.byTags[key]; ok {
			m.Paths = append(m.Paths, e.Key)
			return true
		}
		m := &Meaning{ID: len(s.meanings), Tags: tags, Paths: []int{e.Key}}
		s.meanings = append(s.meanings, m)
		s.byTags[key] = m
		return true
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSet indexes meanings that were loaded from disk.
// Meanings must have distinct tag sets and ids equal to their position.
func NewSet(meanings []*Meaning) (*Set, error) {
	s := &Set{byTags: make(map[string]*Meaning, len(meanings))}
	for i, m := range meanings {
		if m.ID != i {
			return nil, errors.Newf("meaning at position %d has id %d", i, m.ID)
		}
		tags := append([]string(nil), m.Tags...)
		sort.Strings(tags)
		m.Tags = tags

		key := setKey(tags)
		if other, dup := s.byTags[key]; dup {
			return nil, errors.Newf("meanings %d and %d have the same tags", other.ID, m.ID)
		}
		s.byTags[key] = m
		s.meanings = append(s.meanings, m)
	}
	return s, nil
}

// Meanings returns all meanings in id order. The slice must not be modified.
func (s *Set) Meanings() []*Meaning {
	return s.meanings
}

// Len returns the number of meanings
func (s *Set) Len() int {
	return len(s.meanings)
}

// Get returns the meaning with the given id
func (s *Set) Get(id int) (*Meaning, bool) {
	if id < 0 || id >= len(s.meanings) {
		return nil, false
	}
	return s.meanings[id], true
}

// ByTags returns the meaning whose tag set is exactly tags, in any order.
// Duplicate tags are ignored.
func (s *Set) ByTags(tags []string) (*Meaning, bool) {
	set := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		set[tag] = struct{}{}
	}
	sorted := make([]string, 0, len(set))
	for tag := range set {
		sorted = append(sorted, tag)
	}
	sort.Strings(sorted)

	m, ok := s.byTags[setKey(sorted)]
	return m, ok
}

// PathCount returns the total number of paths over all meanings
func (s *Set) PathCount() int {
	n := 0
	for _, m := range s.meanings {
		n += len(m.Paths)
	}
	return n
}

// setKey joins sorted tags into a map key
func setKey(sorted []string) string {
	return strings.Join(sorted, "\x00")
}
