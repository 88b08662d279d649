package edi

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Qualifier values used by the EDI@Energy profile.
const (
	// LOC qualifier for a metering point location.
	LocationQualifierMeteringPoint = "172"
	// DTM qualifier for the message date/time.
	DateQualifierMessage = "137"
	// DTM format codes.
	DateFormatCCYYMMDD     = "102"
	DateFormatCCYYMMDDHHMM = "203"
	// QTY qualifiers: 220/221 consumption, 222/223 generation.
	QuantityQualifierConsumption    = "220"
	QuantityQualifierConsumptionAlt = "221"
	QuantityQualifierGeneration     = "222"
	QuantityQualifierGenerationAlt  = "223"
)

// MappedRecord is the closed set of typed segment projections. Unknown tags
// map to OpaqueRecord so no inbound data is ever dropped.
type MappedRecord interface {
	mappedRecord()
}

// InterchangeHeaderRecord projects a UNB segment.
type InterchangeHeaderRecord struct {
	SyntaxIdentifier string
	Sender           string
	Recipient        string
	ControlReference string
}

// MessageHeaderRecord projects a UNH segment.
type MessageHeaderRecord struct {
	Reference   string
	MessageType string
	Version     string
	Release     string
}

// DocumentRecord projects a BGM segment.
type DocumentRecord struct {
	DocumentCode   string
	DocumentNumber string
	FunctionCode   string
}

// DateRecord projects a DTM segment.
type DateRecord struct {
	Qualifier  string
	Value      string
	FormatCode string
}

// Time parses the record value according to its format code. EDI@Energy
// timestamps carry no zone, they are UTC by convention.
func (d DateRecord) Time() (time.Time, error) {
	switch d.FormatCode {
	case DateFormatCCYYMMDD:
		return time.ParseInLocation("20060102", d.Value, time.UTC)
	case DateFormatCCYYMMDDHHMM:
		return time.ParseInLocation("200601021504", d.Value, time.UTC)
	default:
		return time.Time{}, fmt.Errorf("edi: unsupported date format code %q", d.FormatCode)
	}
}

// PartyRecord projects a NAD segment.
type PartyRecord struct {
	Qualifier      string
	Identification string
}

// LocationRecord projects a LOC segment.
type LocationRecord struct {
	Qualifier string
	Code      string
}

// QuantityRecord projects a QTY segment.
type QuantityRecord struct {
	Qualifier string
	Value     decimal.Decimal
	Unit      string
}

// MeasurementRecord projects a MEA segment.
type MeasurementRecord struct {
	Qualifier string
	Attribute string
	Unit      string
	Value     decimal.Decimal
}

// TrailerRecord projects UNT and UNZ segments.
type TrailerRecord struct {
	Tag       string
	Count     string
	Reference string
}

// OpaqueRecord preserves segments with unrecognized tags verbatim.
type OpaqueRecord struct {
	Tag      string
	Elements [][]string
}

func (InterchangeHeaderRecord) mappedRecord() {}
func (MessageHeaderRecord) mappedRecord()     {}
func (DocumentRecord) mappedRecord()          {}
func (DateRecord) mappedRecord()              {}
func (PartyRecord) mappedRecord()             {}
func (LocationRecord) mappedRecord()          {}
func (QuantityRecord) mappedRecord()          {}
func (MeasurementRecord) mappedRecord()       {}
func (TrailerRecord) mappedRecord()           {}
func (OpaqueRecord) mappedRecord()            {}

// MapSegment projects one segment into its typed record. It is a pure
// function; segments whose numeric payload does not parse fall back to an
// OpaqueRecord so the raw data stays available for auditing.
func MapSegment(seg Segment) MappedRecord {
	switch seg.Tag {
	case TagUNB:
		return InterchangeHeaderRecord{
			SyntaxIdentifier: seg.Component(0, 0),
			Sender:           seg.Component(1, 0),
			Recipient:        seg.Component(2, 0),
			ControlReference: seg.Component(4, 0),
		}
	case TagUNH:
		return MessageHeaderRecord{
			Reference:   seg.Component(0, 0),
			MessageType: seg.Component(1, 0),
			Version:     seg.Component(1, 1),
			Release:     seg.Component(1, 2),
		}
	case "BGM":
		return DocumentRecord{
			DocumentCode:   seg.Component(0, 0),
			DocumentNumber: seg.Component(1, 0),
			FunctionCode:   seg.Component(2, 0),
		}
	case "DTM":
		return DateRecord{
			Qualifier:  seg.Component(0, 0),
			Value:      seg.Component(0, 1),
			FormatCode: seg.Component(0, 2),
		}
	case "NAD":
		return PartyRecord{
			Qualifier:      seg.Component(0, 0),
			Identification: seg.Component(1, 0),
		}
	case "LOC":
		return LocationRecord{
			Qualifier: seg.Component(0, 0),
			Code:      seg.Component(1, 0),
		}
	case "QTY":
		value, err := decimal.NewFromString(seg.Component(0, 1))
		if err != nil {
			return opaque(seg)
		}
		return QuantityRecord{
			Qualifier: seg.Component(0, 0),
			Value:     value,
			Unit:      seg.Component(0, 2),
		}
	case "MEA":
		value, err := decimal.NewFromString(seg.Component(2, 1))
		if err != nil {
			return opaque(seg)
		}
		return MeasurementRecord{
			Qualifier: seg.Component(0, 0),
			Attribute: seg.Component(1, 0),
			Unit:      seg.Component(2, 0),
			Value:     value,
		}
	case TagUNT, TagUNZ:
		return TrailerRecord{
			Tag:       seg.Tag,
			Count:     seg.Component(0, 0),
			Reference: seg.Component(1, 0),
		}
	default:
		return opaque(seg)
	}
}

func opaque(seg Segment) OpaqueRecord {
	elements := make([][]string, len(seg.Elements))
	for i, element := range seg.Elements {
		elements[i] = append([]string(nil), element...)
	}
	return OpaqueRecord{Tag: seg.Tag, Elements: elements}
}
