package edi

import (
	"strconv"
	"time"
)

// Lex tokenizes a raw EDIFACT transmission into an Interchange. The optional
// UNA service-string-advice at the start of the input overrides the default
// delimiter set. Framing is strict: one UNB/UNZ pair around one or more
// UNH/UNT pairs, with trailer counts matching the actual segment counts.
func Lex(raw []byte) (*Interchange, error) {
	delims, rest, err := readServiceStringAdvice(raw)
	if err != nil {
		return nil, err
	}

	segments, err := splitSegments(rest, delims)
	if err != nil {
		return nil, err
	}
	if len(segments) == 0 {
		return nil, malformedf("empty interchange")
	}

	return frame(segments, delims)
}

// readServiceStringAdvice consumes a leading UNA segment when present.
// UNA is followed by exactly six service characters, in order: component
// separator, element separator, decimal mark, release character, reserved,
// segment terminator.
func readServiceStringAdvice(raw []byte) (Delimiters, []byte, error) {
	delims := DefaultDelimiters()
	if len(raw) < 3 || string(raw[:3]) != TagUNA {
		return delims, raw, nil
	}
	if len(raw) < 9 {
		return delims, nil, malformedf("truncated UNA service string advice")
	}
	delims.Component = raw[3]
	delims.Element = raw[4]
	delims.Decimal = raw[5]
	delims.Release = raw[6]
	delims.Terminator = raw[8]
	return delims, raw[9:], nil
}

// splitSegments cuts the byte stream at unescaped segment terminators and
// parses each chunk. Whitespace between segments is skipped; whitespace
// inside field values is preserved verbatim.
func splitSegments(raw []byte, delims Delimiters) ([]Segment, error) {
	var segments []Segment
	var current []byte
	betweenSegments := true

	for i := 0; i < len(raw); i++ {
		ch := raw[i]
		if betweenSegments {
			if ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n' {
				continue
			}
			betweenSegments = false
		}
		switch ch {
		case delims.Release:
			if i+1 < len(raw) {
				current = append(current, ch, raw[i+1])
				i++
			} else {
				current = append(current, ch)
			}
		case delims.Terminator:
			seg, err := parseSegment(current, delims)
			if err != nil {
				return nil, err
			}
			segments = append(segments, seg)
			current = current[:0]
			betweenSegments = true
		default:
			current = append(current, ch)
		}
	}

	if len(current) > 0 {
		return nil, malformedf("unterminated segment at end of input: %q", string(current))
	}
	return segments, nil
}

// parseSegment splits one raw segment into tag, elements and components,
// honoring the release character, and unescapes the values.
func parseSegment(raw []byte, delims Delimiters) (Segment, error) {
	if len(raw) == 0 {
		return Segment{}, malformedf("empty segment")
	}

	elements := splitUnescaped(raw, delims.Element, delims.Release)
	tag := string(unescape(elements[0], delims.Release))
	if tag == "" {
		return Segment{}, malformedf("segment without tag")
	}

	seg := Segment{Tag: tag}
	for _, element := range elements[1:] {
		components := splitUnescaped(element, delims.Component, delims.Release)
		values := make([]string, 0, len(components))
		for _, component := range components {
			values = append(values, string(unescape(component, delims.Release)))
		}
		seg.Elements = append(seg.Elements, values)
	}
	return seg, nil
}

func splitUnescaped(raw []byte, sep, release byte) [][]byte {
	var parts [][]byte
	start := 0
	for i := 0; i < len(raw); i++ {
		switch raw[i] {
		case release:
			i++
		case sep:
			parts = append(parts, raw[start:i])
			start = i + 1
		}
	}
	parts = append(parts, raw[start:])
	return parts
}

func unescape(raw []byte, release byte) []byte {
	out := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == release && i+1 < len(raw) {
			i++
		}
		out = append(out, raw[i])
	}
	return out
}

// frame groups segments into messages and checks the UNB/UNZ and UNH/UNT
// pairing together with the declared trailer counts.
func frame(segments []Segment, delims Delimiters) (*Interchange, error) {
	if segments[0].Tag != TagUNB {
		return nil, malformedf("interchange must start with UNB, got %s", segments[0].Tag)
	}
	last := segments[len(segments)-1]
	if last.Tag != TagUNZ {
		return nil, malformedf("interchange must end with UNZ, got %s", last.Tag)
	}

	header := segments[0]
	inter := &Interchange{
		SenderID:         header.Component(1, 0),
		RecipientID:      header.Component(2, 0),
		ControlReference: header.Component(4, 0),
		Timestamp:        parseInterchangeTimestamp(header),
		Delimiters:       delims,
		Header:           header,
		Trailer:          last,
	}

	var current *Message
	for _, seg := range segments[1 : len(segments)-1] {
		switch seg.Tag {
		case TagUNB, TagUNZ:
			return nil, malformedf("nested %s segment", seg.Tag)
		case TagUNH:
			if current != nil {
				return nil, malformedf("UNH before previous message was closed")
			}
			current = &Message{
				Reference: seg.Component(0, 0),
				Type:      seg.Component(1, 0),
				Segments:  []Segment{seg},
			}
		case TagUNT:
			if current == nil {
				return nil, malformedf("UNT without opening UNH")
			}
			current.Segments = append(current.Segments, seg)
			if err := checkMessageTrailer(current, seg); err != nil {
				return nil, err
			}
			inter.Messages = append(inter.Messages, *current)
			current = nil
		default:
			if current == nil {
				return nil, malformedf("segment %s outside of message", seg.Tag)
			}
			current.Segments = append(current.Segments, seg)
		}
	}
	if current != nil {
		return nil, malformedf("message %s not closed by UNT", current.Reference)
	}

	if err := checkInterchangeTrailer(inter, last); err != nil {
		return nil, err
	}
	return inter, nil
}

func checkMessageTrailer(msg *Message, unt Segment) error {
	declared, err := strconv.Atoi(unt.Component(0, 0))
	if err != nil {
		return malformedf("UNT segment count is not numeric: %q", unt.Component(0, 0))
	}
	if declared != len(msg.Segments) {
		return malformedf("UNT declares %d segments, message %s has %d",
			declared, msg.Reference, len(msg.Segments))
	}
	if ref := unt.Component(1, 0); ref != msg.Reference {
		return malformedf("UNT reference %q does not match UNH reference %q", ref, msg.Reference)
	}
	return nil
}

func checkInterchangeTrailer(inter *Interchange, unz Segment) error {
	declared, err := strconv.Atoi(unz.Component(0, 0))
	if err != nil {
		return malformedf("UNZ message count is not numeric: %q", unz.Component(0, 0))
	}
	if declared != len(inter.Messages) {
		return malformedf("UNZ declares %d messages, interchange has %d", declared, len(inter.Messages))
	}
	if ref := unz.Component(1, 0); ref != inter.ControlReference {
		return malformedf("UNZ reference %q does not match UNB reference %q", ref, inter.ControlReference)
	}
	return nil
}

// parseInterchangeTimestamp reads the UNB date/time composite (YYMMDD:HHMM).
// A missing or unparseable timestamp is not a framing error.
func parseInterchangeTimestamp(unb Segment) time.Time {
	date := unb.Component(3, 0)
	clock := unb.Component(3, 1)
	if date == "" {
		return time.Time{}
	}
	ts, err := time.ParseInLocation("0601021504", date+clock, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return ts
}
