package edi

// ViolationKind classifies a grammar violation.
type ViolationKind string

const (
	ViolationMissing    ViolationKind = "MISSING"
	ViolationUnexpected ViolationKind = "UNEXPECTED"
	ViolationOutOfOrder ViolationKind = "OUT_OF_ORDER"
)

// Violation is one failed grammar rule. RuleIndex is -1 when the segment tag
// does not appear in the grammar at all.
type Violation struct {
	RuleIndex int
	Tag       string
	Kind      ViolationKind
}

// Verdict is the validation outcome for one message.
type Verdict struct {
	MessageType string
	Violations  []Violation
}

// Valid reports whether the message passed its grammar.
func (v Verdict) Valid() bool { return len(v.Violations) == 0 }

// ValidateInterchange validates the full segment sequence of an interchange
// carrying a single message against the grammar of that message's type.
func ValidateInterchange(inter *Interchange, grammars map[string]Grammar, msg Message) (Verdict, error) {
	grammar, ok := grammars[msg.Type]
	if !ok {
		return Verdict{MessageType: msg.Type}, ErrUnknownMessageType
	}

	segments := make([]Segment, 0, len(msg.Segments)+2)
	segments = append(segments, inter.Header)
	segments = append(segments, msg.Segments...)
	segments = append(segments, inter.Trailer)

	return Verdict{
		MessageType: msg.Type,
		Violations:  Validate(segments, grammar),
	}, nil
}

// Validate matches an ordered segment sequence against a grammar in a single
// left-to-right scan without backtracking. Segment order in EDI@Energy is
// normative, so a segment matching an already-consumed earlier rule is an
// OUT_OF_ORDER violation, not a reordering opportunity.
func Validate(segments []Segment, grammar Grammar) []Violation {
	rules := grammar.Rules
	counts := make([]int, len(rules))
	var violations []Violation
	ri := 0

	for _, seg := range segments {
		// Look ahead for the first rule at or after the cursor that can
		// still accept this tag.
		next := -1
		for j := ri; j < len(rules); j++ {
			if rules[j].Tag != seg.Tag {
				continue
			}
			if rules[j].Cardinality.Bounded() && counts[j] >= 1 {
				continue
			}
			next = j
			break
		}

		if next >= 0 {
			// Commit the skip: every mandatory rule passed over is missing.
			for j := ri; j < next; j++ {
				if counts[j] < rules[j].Cardinality.Min() {
					violations = append(violations, Violation{RuleIndex: j, Tag: rules[j].Tag, Kind: ViolationMissing})
				}
			}
			counts[next]++
			ri = next
			continue
		}

		// No forward rule accepts the segment.
		if idx := ruleIndexBefore(rules, seg.Tag, ri); idx >= 0 {
			violations = append(violations, Violation{RuleIndex: idx, Tag: seg.Tag, Kind: ViolationOutOfOrder})
			continue
		}
		if idx := ruleIndexFrom(rules, seg.Tag, ri); idx >= 0 {
			// Tag is known but its quota is already consumed.
			violations = append(violations, Violation{RuleIndex: idx, Tag: seg.Tag, Kind: ViolationUnexpected})
			continue
		}
		violations = append(violations, Violation{RuleIndex: -1, Tag: seg.Tag, Kind: ViolationUnexpected})
	}

	for j := ri; j < len(rules); j++ {
		if counts[j] < rules[j].Cardinality.Min() {
			violations = append(violations, Violation{RuleIndex: j, Tag: rules[j].Tag, Kind: ViolationMissing})
		}
	}
	return violations
}

func ruleIndexBefore(rules []SegmentRule, tag string, end int) int {
	for j := 0; j < end && j < len(rules); j++ {
		if rules[j].Tag == tag {
			return j
		}
	}
	return -1
}

func ruleIndexFrom(rules []SegmentRule, tag string, start int) int {
	for j := start; j < len(rules); j++ {
		if rules[j].Tag == tag {
			return j
		}
	}
	return -1
}
