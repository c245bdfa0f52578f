package bundle

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/teranos/reductionist/errors"
	"github.com/teranos/reductionist/grammar"
)

// GrammarFile is the JSON layout of the .grammar artifact
type GrammarFile struct {
	TagToID map[string]string `json:"tag_to_id"`
	IDToTag map[string]string `json:"id_to_tag"`
	Symbols SymbolTable       `json:"nonterminal_symbols"`
}

// SymbolRecord is one entry of nonterminal_symbols
type SymbolRecord struct {
	ID                           int          `json:"-"`
	Name                         string       `json:"name"`
	ExpansionsAreCompleteOutputs bool         `json:"expansions_are_complete_outputs"`
	IsStartSymbol                bool         `json:"is_start_symbol"`
	IsSemanticallyMeaningful     bool         `json:"is_semantically_meaningful"`
	Tags                         []string     `json:"tags"`
	ProductionRules              []RuleRecord `json:"production_rules"`
}

// RuleRecord is one production rule of a SymbolRecord
type RuleRecord struct {
	ID                       int           `json:"id"`
	ApplicationFrequency     float64       `json:"application_frequency"`
	Body                     []BodyElement `json:"body"`
	IsSemanticallyMeaningful bool          `json:"is_semantically_meaningful"`
}

// BodyElement is a symbol id (JSON number) or a terminal literal (JSON string)
type BodyElement struct {
	IsSymbol bool
	Symbol   int
	Text     string
}

// MarshalJSON writes the element as a number or a string
func (b BodyElement) MarshalJSON() ([]byte, error) {
	if b.IsSymbol {
		return []byte(strconv.Itoa(b.Symbol)), nil
	}
	return json.Marshal(b.Text)
}

// UnmarshalJSON reads a number as a symbol reference and a string as a literal
func (b *BodyElement) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		*b = BodyElement{}
		return json.Unmarshal(data, &b.Text)
	}
	id, err := strconv.Atoi(string(data))
	if err != nil {
		return errors.Newf("body element %s is neither a symbol id nor a string", data)
	}
	*b = BodyElement{IsSymbol: true, Symbol: id}
	return nil
}

// SymbolTable is keyed by symbol id; it is written in id order
type SymbolTable []SymbolRecord

// MarshalJSON writes {"0": {...}, "1": {...}} with ascending ids
func (t SymbolTable) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(strconv.Itoa(rec.ID))
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the id-keyed object back into id order
func (t *SymbolTable) UnmarshalJSON(data []byte) error {
	var raw map[string]SymbolRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	table := make(SymbolTable, len(raw))
	for key, rec := range raw {
		id, err := strconv.Atoi(key)
		if err != nil || id < 0 || id >= len(raw) {
			return errors.Newf("symbol key %q is not a dense id", key)
		}
		rec.ID = id
		table[id] = rec
	}
	*t = table
	return nil
}

func newGrammarFile(a *Artifacts) *GrammarFile {
	g := a.Grammar
	f := &GrammarFile{
		TagToID: make(map[string]string, len(g.Tags())),
		IDToTag: make(map[string]string, len(g.Tags())),
	}
	for id, tag := range g.Tags() {
		f.TagToID[tag] = grammar.TagKey(id)
		f.IDToTag[grammar.TagKey(id)] = tag
	}

	for _, s := range g.Symbols() {
		rec := SymbolRecord{
			ID:                           s.ID,
			Name:                         s.Name,
			ExpansionsAreCompleteOutputs: s.TopLevel,
			IsStartSymbol:                s.IsStart,
			IsSemanticallyMeaningful:     a.Meaningfulness.Symbol(s.ID),
			Tags:                         append([]string{}, s.Tags...),
			ProductionRules:              []RuleRecord{},
		}
		for _, ruleID := range s.Rules {
			r := g.Rule(ruleID)
			body := make([]BodyElement, len(r.Body))
			for i, el := range r.Body {
				if el.IsTerminal() {
					body[i] = BodyElement{Text: el.Text}
				} else {
					body[i] = BodyElement{IsSymbol: true, Symbol: el.Symbol}
				}
			}
			rec.ProductionRules = append(rec.ProductionRules, RuleRecord{
				ID:                       r.ID,
				ApplicationFrequency:     r.Frequency,
				Body:                     body,
				IsSemanticallyMeaningful: a.Meaningfulness.Rule(r.ID),
			})
		}
		f.Symbols = append(f.Symbols, rec)
	}
	return f
}
