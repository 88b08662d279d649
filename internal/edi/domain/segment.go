package edi

import "time"

// Message types exchanged with market partners.
const (
	MessageTypeUTILMD = "UTILMD"
	MessageTypeMSCONS = "MSCONS"
	MessageTypeINVOIC = "INVOIC"
	MessageTypeAPERAK = "APERAK"
)

// Service segment tags that frame interchanges and messages.
const (
	TagUNA = "UNA"
	TagUNB = "UNB"
	TagUNH = "UNH"
	TagUNT = "UNT"
	TagUNZ = "UNZ"
)

// Delimiters holds the service characters of an interchange. They default to
// the UN/EDIFACT level A conventions and may be overridden by a UNA segment.
type Delimiters struct {
	Component  byte
	Element    byte
	Decimal    byte
	Release    byte
	Terminator byte
}

// DefaultDelimiters returns the standard EDIFACT service characters.
func DefaultDelimiters() Delimiters {
	return Delimiters{
		Component:  ':',
		Element:    '+',
		Decimal:    '.',
		Release:    '?',
		Terminator: '\'',
	}
}

// Segment is one lexed EDIFACT segment: a tag plus its data elements, each
// element being an ordered list of component values. Values keep their
// whitespace verbatim since meter and location codes may be fixed-width.
type Segment struct {
	Tag      string
	Elements [][]string
}

// Component returns the component at (element, component) or "" when absent.
func (s Segment) Component(element, component int) string {
	if element < 0 || element >= len(s.Elements) {
		return ""
	}
	comps := s.Elements[element]
	if component < 0 || component >= len(comps) {
		return ""
	}
	return comps[component]
}

// Message is one EDIFACT message between a UNH/UNT pair.
type Message struct {
	Type      string
	Reference string
	Segments  []Segment
}

// Interchange is one EDIFACT transmission between a UNB/UNZ pair. It owns its
// messages and segments; the value is immutable once lexed.
type Interchange struct {
	SenderID         string
	RecipientID      string
	ControlReference string
	Timestamp        time.Time
	Delimiters       Delimiters
	Header           Segment
	Trailer          Segment
	Messages         []Message
}

// SegmentCount returns the number of segments including framing.
func (i *Interchange) SegmentCount() int {
	n := 2 // UNB + UNZ
	for _, m := range i.Messages {
		n += len(m.Segments)
	}
	return n
}
