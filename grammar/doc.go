// Package grammar holds the in-memory model of an annotated context-free grammar.
//
// A grammar is decoded from the authoring tool's export (JSON or YAML), then built
// into a dense arena: symbols and rules get contiguous zero-based ids in declaration
// order, [[name]] references in rule bodies are grounded to symbol ids, and every
// "tagset:value" string gets a tag id in first-seen order.
//
// The start symbol is not part of the authored document. It is appended by
// SynthesizeStart once the grammar has been validated, with one rule per
// top-level symbol.
package grammar
