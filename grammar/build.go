package grammar

import (
	"os"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/teranos/reductionist/errors"
)

// Load reads, decodes and builds the grammar at path
func Load(path string) (*Grammar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newLoadError(path, errors.Wrap(err, "no grammar file"))
	}
	defer f.Close()

	spec, err := Decode(f, FormatFromPath(path))
	if err != nil {
		return nil, withPath(err, path)
	}

	g, err := Build(spec)
	if err != nil {
		return nil, withPath(err, path)
	}
	return g, nil
}

// withPath fills in the path of a LoadError raised before the path was known
func withPath(err error, path string) error {
	var le *LoadError
	if errors.As(err, &le) && le.Path == "" {
		le.Path = path
	}
	return err
}

// Build assigns ids, grounds symbol references and compiles tags
func Build(spec *Spec) (*Grammar, error) {
	if spec == nil {
		return nil, newLoadError("", errors.New("empty grammar document"))
	}

	g := &Grammar{
		byName:  make(map[string]int, len(spec.Nonterminals)),
		tagToID: make(map[string]int),
		start:   -1,
	}

	// Symbols and rules get ids in declaration order
	for _, nt := range spec.Nonterminals {
		name := normalize(nt.Name)
		if name == StartSymbolName {
			return nil, errors.WithHint(
				newLoadError("", errors.Newf("symbol name %s is reserved", StartSymbolName)),
				"rename the symbol; the start symbol is synthesized")
		}
		if _, dup := g.byName[name]; dup {
			return nil, newLoadError("", errors.Newf("symbol [[%s]] is declared twice", name))
		}

		sym := &Symbol{
			ID:       len(g.symbols),
			Name:     name,
			TopLevel: nt.Deep,
			Tags:     flattenTags(nt.Markup),
		}
		g.byName[name] = sym.ID
		g.symbols = append(g.symbols, sym)

		for i, rs := range nt.Rules {
			if rs.AppRate == nil {
				return nil, newLoadError("", errors.Newf("rule %d of [[%s]] has no app_rate", i, name))
			}
			if *rs.AppRate <= 0 {
				return nil, newLoadError("", errors.Newf("rule %d of [[%s]] has non-positive app_rate %v", i, name, *rs.AppRate))
			}
			rule := &Rule{
				ID:        len(g.rules),
				Head:      sym.ID,
				Frequency: *rs.AppRate,
				headName:  name,
				source:    append([]string(nil), rs.Expansion...),
			}
			sym.Rules = append(sym.Rules, rule.ID)
			g.rules = append(g.rules, rule)
		}
	}

	if err := g.groundReferences(); err != nil {
		return nil, err
	}

	for _, r := range g.rules {
		r.Tags = g.compileRuleTags(r)
	}

	for _, sym := range g.symbols {
		for _, tag := range sym.Tags {
			g.internTag(tag)
		}
	}

	return g, nil
}

// groundReferences resolves [[name]] tokens to symbol ids; any other token is a literal
func (g *Grammar) groundReferences() error {
	seen := make(map[string]bool)
	for _, r := range g.rules {
		r.Body = make([]Element, 0, len(r.source))
		for _, tok := range r.source {
			name, isRef := referenceName(tok)
			if !isRef {
				r.Body = append(r.Body, Terminal(tok))
				if !seen[tok] {
					seen[tok] = true
					g.terminals = append(g.terminals, tok)
				}
				continue
			}
			id, ok := g.byName[name]
			if !ok {
				return newReferenceError(r.String(), name)
			}
			r.Body = append(r.Body, Ref(id))
		}
		r.Terminal = len(r.References()) == 0
	}
	return nil
}

func (g *Grammar) compileRuleTags(r *Rule) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, id := range r.References() {
		for _, tag := range g.symbols[id].Tags {
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func (g *Grammar) internTag(tag string) int {
	if id, ok := g.tagToID[tag]; ok {
		return id
	}
	id := len(g.idToTag)
	g.tagToID[tag] = id
	g.idToTag = append(g.idToTag, tag)
	return id
}

// SynthesizeStart appends the start symbol with one rule per top-level symbol.
// It must be called once, after validation.
func (g *Grammar) SynthesizeStart() error {
	if g.start >= 0 {
		return errors.AssertionFailedf("start symbol already synthesized")
	}

	topLevel := g.TopLevel()
	start := &Symbol{
		ID:       len(g.symbols),
		Name:     StartSymbolName,
		TopLevel: true,
		IsStart:  true,
		Tags:     []string{},
	}

	for _, sym := range topLevel {
		rule := &Rule{
			ID:        len(g.rules),
			Head:      start.ID,
			Body:      []Element{Ref(sym.ID)},
			Frequency: 1.0,
			Tags:      append([]string(nil), sym.Tags...),
			headName:  StartSymbolName,
			source:    []string{sym.String()},
		}
		start.Rules = append(start.Rules, rule.ID)
		g.rules = append(g.rules, rule)
	}

	g.symbols = append(g.symbols, start)
	g.byName[StartSymbolName] = start.ID
	g.start = start.ID
	return nil
}

// flattenTags turns a markup dictionary into "tagset:value" strings
func flattenTags(markup Markup) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, set := range markup {
		for _, value := range set.Values {
			tag := normalize(set.Name + ":" + value)
			if !seen[tag] {
				seen[tag] = true
				tags = append(tags, tag)
			}
		}
	}
	return tags
}

func referenceName(token string) (string, bool) {
	if len(token) >= 4 && strings.HasPrefix(token, "[[") && strings.HasSuffix(token, "]]") {
		return normalize(token[2 : len(token)-2]), true
	}
	return "", false
}

func normalize(s string) string {
	return norm.NFC.String(s)
}
