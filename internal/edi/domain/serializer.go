package edi

import "strings"

// Serialize renders an interchange back to EDIFACT wire format, one segment
// per line. Delimiter characters inside field values are escaped with the
// release character, so Serialize is the inverse of Lex.
func Serialize(inter *Interchange) []byte {
	var b strings.Builder
	delims := inter.Delimiters
	if delims.Terminator == 0 {
		delims = DefaultDelimiters()
	}

	writeSegment(&b, inter.Header, delims)
	for _, msg := range inter.Messages {
		for _, seg := range msg.Segments {
			writeSegment(&b, seg, delims)
		}
	}
	writeSegment(&b, inter.Trailer, delims)
	return []byte(b.String())
}

func writeSegment(b *strings.Builder, seg Segment, delims Delimiters) {
	b.WriteString(seg.Tag)
	for _, element := range seg.Elements {
		b.WriteByte(delims.Element)
		for ci, component := range element {
			if ci > 0 {
				b.WriteByte(delims.Component)
			}
			b.WriteString(escape(component, delims))
		}
	}
	b.WriteByte(delims.Terminator)
	b.WriteByte('\n')
}

func escape(value string, delims Delimiters) string {
	var b strings.Builder
	for i := 0; i < len(value); i++ {
		ch := value[i]
		if ch == delims.Component || ch == delims.Element || ch == delims.Release || ch == delims.Terminator {
			b.WriteByte(delims.Release)
		}
		b.WriteByte(ch)
	}
	return b.String()
}
