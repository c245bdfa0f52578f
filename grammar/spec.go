package grammar

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teranos/reductionist/errors"
)

// Format identifies the encoding of a grammar document
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension; anything but .yaml/.yml is JSON
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Spec is a decoded grammar document, before ids are assigned
type Spec struct {
	Nonterminals []NonterminalSpec
}

// NonterminalSpec is one entry of the document's "nonterminals" object
type NonterminalSpec struct {
	Name   string     `json:"-" yaml:"-"`
	Deep   bool       `json:"deep" yaml:"deep"`
	Markup Markup     `json:"markup" yaml:"markup"`
	Rules  []RuleSpec `json:"rules" yaml:"rules"`
}

// RuleSpec is one authored rule
type RuleSpec struct {
	Expansion []string `json:"expansion" yaml:"expansion"`
	AppRate   *float64 `json:"app_rate" yaml:"app_rate"`
}

// TagSet is one entry of a symbol's markup: a tagset name and its values
type TagSet struct {
	Name   string
	Values []string
}

// Markup is a symbol's tag dictionary with the document's key order preserved
type Markup []TagSet

type document struct {
	Nonterminals *nonterminalList `json:"nonterminals" yaml:"nonterminals"`
}

type nonterminalList []NonterminalSpec

// Decode parses a grammar document
func Decode(r io.Reader, format Format) (*Spec, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, newLoadError("", errors.Wrap(err, "failed to read grammar"))
	}

	var doc document
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(data, &doc)
	case FormatJSON, "":
		err = json.Unmarshal(data, &doc)
	default:
		return nil, newLoadError("", errors.Newf("unsupported grammar format %q", format))
	}
	if err != nil {
		return nil, newLoadError("", errors.Wrapf(err, "failed to parse %s grammar", formatName(format)))
	}
	if doc.Nonterminals == nil {
		return nil, newLoadError("", errors.New("document has no \"nonterminals\" object"))
	}

	return &Spec{Nonterminals: *doc.Nonterminals}, nil
}

func formatName(f Format) string {
	if f == "" {
		return string(FormatJSON)
	}
	return string(f)
}

// UnmarshalJSON decodes the nonterminals object keeping key order
func (l *nonterminalList) UnmarshalJSON(data []byte) error {
	out := nonterminalList{}
	err := walkJSONObject(data, func(key string, raw json.RawMessage) error {
		var nt NonterminalSpec
		if err := json.Unmarshal(raw, &nt); err != nil {
			return errors.Wrapf(err, "nonterminal %q", key)
		}
		nt.Name = key
		out = append(out, nt)
		return nil
	})
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// UnmarshalYAML decodes the nonterminals mapping keeping key order
func (l *nonterminalList) UnmarshalYAML(node *yaml.Node) error {
	out := nonterminalList{}
	err := walkYAMLMapping(node, func(key string, value *yaml.Node) error {
		var nt NonterminalSpec
		if err := value.Decode(&nt); err != nil {
			return errors.Wrapf(err, "nonterminal %q", key)
		}
		nt.Name = key
		out = append(out, nt)
		return nil
	})
	if err != nil {
		return err
	}
	*l = out
	return nil
}

// UnmarshalJSON decodes a markup object keeping tagset order
func (m *Markup) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*m = nil
		return nil
	}
	var out Markup
	err := walkJSONObject(data, func(key string, raw json.RawMessage) error {
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return errors.Wrapf(err, "tagset %q", key)
		}
		out = append(out, TagSet{Name: key, Values: values})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// UnmarshalYAML decodes a markup mapping keeping tagset order
func (m *Markup) UnmarshalYAML(node *yaml.Node) error {
	var out Markup
	err := walkYAMLMapping(node, func(key string, value *yaml.Node) error {
		var values []string
		if err := value.Decode(&values); err != nil {
			return errors.Wrapf(err, "tagset %q", key)
		}
		out = append(out, TagSet{Name: key, Values: values})
		return nil
	})
	if err != nil {
		return err
	}
	*m = out
	return nil
}

// walkJSONObject calls fn for each member of a JSON object in document order
func walkJSONObject(data []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errors.Newf("expected a JSON object, got %v", tok)
	}

	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Newf("expected an object key, got %v", tok)
		}
		if seen[key] {
			return errors.Newf("duplicate key %q", key)
		}
		seen[key] = true

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return errors.Wrapf(err, "value of %q", key)
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	if _, err := dec.Token(); err != nil {
		return err
	}
	return nil
}

// walkYAMLMapping calls fn for each pair of a YAML mapping in document order
func walkYAMLMapping(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return errors.Newf("line %d: expected a mapping", node.Line)
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, value := node.Content[i], node.Content[i+1]
		key := keyNode.Value
		if seen[key] {
			return errors.Newf("line %d: duplicate key %q", keyNode.Line, key)
		}
		seen[key] = true
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return nil
}
