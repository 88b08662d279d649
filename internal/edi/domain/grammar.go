package edi

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Cardinality constrains how often a grammar rule may match.
type Cardinality int

const (
	ExactlyOne Cardinality = iota
	ZeroOrOne
	OneOrMore
	ZeroOrMore
)

var cardinalityNames = map[Cardinality]string{
	ExactlyOne: "exactly-one",
	ZeroOrOne:  "zero-or-one",
	OneOrMore:  "one-or-more",
	ZeroOrMore: "zero-or-more",
}

func (c Cardinality) String() string { return cardinalityNames[c] }

// Min returns the minimum number of required matches.
func (c Cardinality) Min() int {
	if c == ExactlyOne || c == OneOrMore {
		return 1
	}
	return 0
}

// Bounded reports whether at most one match is allowed.
func (c Cardinality) Bounded() bool {
	return c == ExactlyOne || c == ZeroOrOne
}

// UnmarshalYAML reads the textual cardinality form used in grammar files.
func (c *Cardinality) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	for card, name := range cardinalityNames {
		if name == raw {
			*c = card
			return nil
		}
	}
	return fmt.Errorf("edi: unknown cardinality %q", raw)
}

// SegmentRule is one ordered rule of a message grammar.
type SegmentRule struct {
	Tag         string      `yaml:"tag"`
	Cardinality Cardinality `yaml:"cardinality"`
}

// Grammar is the required-segment/order grammar for one message type.
// Grammars are data: new message types are added by supplying a new rule
// table, not new code.
type Grammar struct {
	MessageType string        `yaml:"message_type"`
	Rules       []SegmentRule `yaml:"rules"`
}

// BuiltinGrammars returns the shipped EDI@Energy rule tables. They validate
// the full interchange segment sequence including framing.
func BuiltinGrammars() map[string]Grammar {
	grammars := []Grammar{
		{
			MessageType: MessageTypeUTILMD,
			Rules: []SegmentRule{
				{Tag: TagUNB, Cardinality: ExactlyOne},
				{Tag: TagUNH, Cardinality: ExactlyOne},
				{Tag: "BGM", Cardinality: ExactlyOne},
				{Tag: "DTM", Cardinality: OneOrMore},
				{Tag: "NAD", Cardinality: OneOrMore},
				{Tag: "LOC", Cardinality: ZeroOrMore},
				{Tag: "CCI", Cardinality: ZeroOrMore},
				{Tag: "CAV", Cardinality: ZeroOrMore},
				{Tag: TagUNT, Cardinality: ExactlyOne},
				{Tag: TagUNZ, Cardinality: ExactlyOne},
			},
		},
		{
			MessageType: MessageTypeMSCONS,
			Rules: []SegmentRule{
				{Tag: TagUNB, Cardinality: ExactlyOne},
				{Tag: TagUNH, Cardinality: ExactlyOne},
				{Tag: "BGM", Cardinality: ExactlyOne},
				{Tag: "DTM", Cardinality: OneOrMore},
				{Tag: "NAD", Cardinality: OneOrMore},
				{Tag: "LOC", Cardinality: OneOrMore},
				{Tag: "QTY", Cardinality: OneOrMore},
				{Tag: "MEA", Cardinality: ZeroOrMore},
				{Tag: TagUNT, Cardinality: ExactlyOne},
				{Tag: TagUNZ, Cardinality: ExactlyOne},
			},
		},
		{
			MessageType: MessageTypeINVOIC,
			Rules: []SegmentRule{
				{Tag: TagUNB, Cardinality: ExactlyOne},
				{Tag: TagUNH, Cardinality: ExactlyOne},
				{Tag: "BGM", Cardinality: ExactlyOne},
				{Tag: "DTM", Cardinality: OneOrMore},
				{Tag: "NAD", Cardinality: OneOrMore},
				{Tag: "MOA", Cardinality: OneOrMore},
				{Tag: "TAX", Cardinality: ZeroOrMore},
				{Tag: TagUNT, Cardinality: ExactlyOne},
				{Tag: TagUNZ, Cardinality: ExactlyOne},
			},
		},
		{
			MessageType: MessageTypeAPERAK,
			Rules: []SegmentRule{
				{Tag: TagUNB, Cardinality: ExactlyOne},
				{Tag: TagUNH, Cardinality: ExactlyOne},
				{Tag: "BGM", Cardinality: ExactlyOne},
				{Tag: "DTM", Cardinality: OneOrMore},
				{Tag: "RFF", Cardinality: ZeroOrOne},
				{Tag: "ERC", Cardinality: ZeroOrMore},
				{Tag: "FTX", Cardinality: ZeroOrMore},
				{Tag: TagUNT, Cardinality: ExactlyOne},
				{Tag: TagUNZ, Cardinality: ExactlyOne},
			},
		},
	}

	byType := make(map[string]Grammar, len(grammars))
	for _, g := range grammars {
		byType[g.MessageType] = g
	}
	return byType
}

type grammarFile struct {
	Grammars []Grammar `yaml:"grammars"`
}

// LoadGrammars merges grammar tables from a YAML file over the builtin set.
// A file entry with an already known message type replaces the builtin table.
func LoadGrammars(path string) (map[string]Grammar, error) {
	grammars := BuiltinGrammars()
	if path == "" {
		return grammars, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file grammarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for _, g := range file.Grammars {
		if g.MessageType == "" || len(g.Rules) == 0 {
			return nil, fmt.Errorf("edi: grammar entry without message type or rules")
		}
		grammars[g.MessageType] = g
	}
	return grammars, nil
}
