package bundle

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"sort"
	"strconv"
	"strings"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
	"github.com/teranos/reductionist/meaning"
)

// writeMeanings writes one line per meaning: id, comma-separated path keys,
// comma-separated tag ids (ascending)
func writeMeanings(w io.Writer, g *grammar.Grammar, set *meaning.Set) error {
	bw := bufio.NewWriter(w)
	for _, m := range set.Meanings() {
		tagIDs := make([]int, 0, len(m.Tags))
		for _, tag := range m.Tags {
			id, ok := g.TagID(tag)
			if !ok {
				return errors.AssertionFailedf("meaning %d has unknown tag %q", m.ID, tag)
			}
			tagIDs = append(tagIDs, id)
		}
		sort.Ints(tagIDs)

		fmt.Fprintf(bw, "%d\t%s\t%s\n", m.ID, joinInts(m.Paths), joinInts(tagIDs))
	}
	return bw.Flush()
}

// ReadMeanings parses a .meanings file, resolving tag ids through idToTag
func ReadMeanings(r io.Reader, idToTag map[string]string) ([]*meaning.Meaning, error) {
	var out []*meaning.Meaning
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}
		fields := strings.Split(text, "\t")
		if len(fields) != 3 {
			return nil, formatErrorf("line %d: want 3 tab-separated fields, got %d", line, len(fields))
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, formatErrorf("line %d: bad meaning id %q", line, fields[0])
		}
		keys, err := splitInts(fields[1])
		if err != nil {
			return nil, formatErrorf("line %d: bad path keys: %v", line, err)
		}

		tags := []string{}
		if fields[2] != "" {
			for _, tagID := range strings.Split(fields[2], ",") {
				tag, ok := idToTag[tagID]
				if !ok {
					return nil, formatErrorf("line %d: unknown tag id %s", line, tagID)
				}
				tags = append(tags, tag)
			}
		}
		sort.Strings(tags)
		out = append(out, &meaning.Meaning{ID: id, Tags: tags, Paths: keys})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read meanings")
	}
	return out, nil
}

// Stats is the content of a .stats file
type Stats struct {
	TotalOutputs  *big.Int
	TotalMeanings int
	Fingerprint   string
	Symbols       []NamedCount
	Rules         []NamedCount
}

// NamedCount is a symbol name or rendered rule with its variant count
type NamedCount struct {
	Name  string
	Count *big.Int
}

func newStats(a *Artifacts) *Stats {
	s := &Stats{
		TotalOutputs:  a.Variants.Total(),
		TotalMeanings: a.Meanings.Len(),
		Fingerprint:   a.Fingerprint,
	}
	for _, sym := range a.Grammar.Symbols() {
		s.Symbols = append(s.Symbols, NamedCount{Name: sym.Name, Count: a.Variants.Symbol(sym.ID)})
	}
	for _, r := range a.Grammar.Rules() {
		s.Rules = append(s.Rules, NamedCount{Name: r.String(), Count: a.Variants.Rule(r.ID)})
	}
	return s
}

const (
	statsOutputs     = "Total outputs"
	statsMeanings    = "Total expressible meanings"
	statsFingerprint = "Fingerprint"
	statsSymbols     = "Total terminal expansions of nonterminal symbols"
	statsRules       = "Total terminal results of production rules"
)

func writeStats(w io.Writer, s *Stats) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%s\t%s\n", statsOutputs, s.TotalOutputs)
	fmt.Fprintf(bw, "%s\t%d\n", statsMeanings, s.TotalMeanings)
	if s.Fingerprint != "" {
		fmt.Fprintf(bw, "%s\t%s\n", statsFingerprint, s.Fingerprint)
	}
	fmt.Fprintln(bw, statsSymbols)
	for _, c := range s.Symbols {
		fmt.Fprintf(bw, "\t%s\t%s\n", c.Name, c.Count)
	}
	fmt.Fprintln(bw, statsRules)
	for _, c := range s.Rules {
		fmt.Fprintf(bw, "\t%s\t%s\n", c.Name, c.Count)
	}
	return bw.Flush()
}

// ReadStats parses a .stats file
func ReadStats(r io.Reader) (*Stats, error) {
	s := &Stats{TotalOutputs: new(big.Int)}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var section *[]NamedCount
	for scanner.Scan() {
		text := scanner.Text()
		switch {
		case text == statsSymbols:
			section = &s.Symbols
		case text == statsRules:
			section = &s.Rules
		case strings.HasPrefix(text, "\t"):
			if section == nil {
				return nil, formatErrorf("count line %q outside a section", text)
			}
			// Rule renderings may contain tabs; the count is always last
			cut := strings.LastIndex(text, "\t")
			n, ok := new(big.Int).SetString(text[cut+1:], 10)
			if !ok || cut == 0 {
				return nil, formatErrorf("bad count line %q", text)
			}
			*section = append(*section, NamedCount{Name: text[1:cut], Count: n})
		default:
			key, value, ok := strings.Cut(text, "\t")
			if !ok {
				return nil, formatErrorf("unexpected line %q", text)
			}
			switch key {
			case statsOutputs:
				if _, ok := s.TotalOutputs.SetString(value, 10); !ok {
					return nil, formatErrorf("bad total outputs %q", value)
				}
			case statsMeanings:
				n, err := strconv.Atoi(value)
				if err != nil {
					return nil, formatErrorf("bad total meanings %q", value)
				}
				s.TotalMeanings = n
			case statsFingerprint:
				s.Fingerprint = value
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to read stats")
	}
	return s, nil
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

func splitInts(s string) ([]int, error) {
	if s == "" {
		return []int{}, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}

func formatErrorf(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), errors.ErrFormat)
}
