package edi

import (
	"crypto/rand"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// APERAK response codes (BGM message function).
const (
	AperakCodeAccepted = "29"
	AperakCodeRejected = "27"
)

// EDI@Energy application error codes carried in ERC segments.
const (
	ErrorCodeSyntax          = "2"
	ErrorCodeSegmentMissing  = "12"
	ErrorCodeSegmentInvalid  = "13"
	ErrorCodeElementMissing  = "15"
	ErrorCodeElementInvalid  = "16"
	ErrorCodeSequence        = "17"
	ErrorCodeDuplicate       = "18"
	ErrorCodeUnsupportedType = "19"
)

// AckStatus is the acknowledgment outcome for one message.
type AckStatus string

const (
	AckAccepted AckStatus = "ACCEPTED"
	AckRejected AckStatus = "REJECTED"
)

// AcknowledgmentRecord summarizes an issued acknowledgment for auditing.
type AcknowledgmentRecord struct {
	InterchangeReference string
	MessageReference     string
	Status               AckStatus
	ViolationCodes       []string
}

// AperakBuilder produces APERAK acknowledgment interchanges. MaxReported
// caps how many violations are carried as ERC segments so a deeply broken
// inbound message cannot inflate the acknowledgment.
type AperakBuilder struct {
	SenderID    string
	MaxReported int
	Clock       func() time.Time
	NewRef      func() string
}

// DefaultMaxReportedViolations bounds the ERC segment count when the builder
// is not configured otherwise.
const DefaultMaxReportedViolations = 10

// Build assembles a positive or negative APERAK for one message of the
// original interchange. The result is a regular Interchange value, so the
// serializer turns it into wire bytes and the lexer can read it back.
func (b AperakBuilder) Build(original *Interchange, msg Message, verdict Verdict) (*Interchange, AcknowledgmentRecord) {
	now := b.now()
	interRef := b.newRef()
	msgRef := b.newRef()

	status := AckAccepted
	code := AperakCodeAccepted
	if !verdict.Valid() {
		status = AckRejected
		code = AperakCodeRejected
	}

	segments := []Segment{
		{Tag: TagUNH, Elements: [][]string{
			{msgRef},
			{MessageTypeAPERAK, "D", "07B", "UN", "EEG"},
		}},
		{Tag: "BGM", Elements: [][]string{{"916"}, {msgRef}, {code}}},
		{Tag: "DTM", Elements: [][]string{{DateQualifierMessage, now.Format("20060102"), DateFormatCCYYMMDD}}},
	}
	if msg.Reference != "" {
		segments = append(segments, Segment{Tag: "RFF", Elements: [][]string{{"ACW", msg.Reference}}})
	}

	record := AcknowledgmentRecord{
		InterchangeReference: original.ControlReference,
		MessageReference:     msg.Reference,
		Status:               status,
	}

	if status == AckRejected {
		max := b.MaxReported
		if max <= 0 {
			max = DefaultMaxReportedViolations
		}
		for i, violation := range verdict.Violations {
			if i >= max {
				break
			}
			errCode := violationErrorCode(violation)
			record.ViolationCodes = append(record.ViolationCodes, errCode)
			segments = append(segments, Segment{
				Tag:      "ERC",
				Elements: [][]string{{errCode, violation.Tag + " " + strings.ToLower(string(violation.Kind))}},
			})
		}
	}

	segments = append(segments, Segment{
		Tag:      "FTX",
		Elements: [][]string{{"AAO"}, {}, {}, {statusText(status)}},
	})

	// UNT counts all message segments including UNH and UNT itself.
	segments = append(segments, Segment{
		Tag:      TagUNT,
		Elements: [][]string{{strconv.Itoa(len(segments) + 1)}, {msgRef}},
	})

	ack := &Interchange{
		SenderID:         b.SenderID,
		RecipientID:      original.SenderID,
		ControlReference: interRef,
		Timestamp:        now,
		Delimiters:       DefaultDelimiters(),
		Header: Segment{Tag: TagUNB, Elements: [][]string{
			{"UNOC", "3"},
			{b.SenderID},
			{original.SenderID},
			{now.Format("060102"), now.Format("1504")},
			{interRef},
		}},
		Trailer: Segment{Tag: TagUNZ, Elements: [][]string{{"1"}, {interRef}}},
		Messages: []Message{{
			Type:      MessageTypeAPERAK,
			Reference: msgRef,
			Segments:  segments,
		}},
	}
	return ack, record
}

func violationErrorCode(v Violation) string {
	switch v.Kind {
	case ViolationMissing:
		return ErrorCodeSegmentMissing
	case ViolationOutOfOrder:
		return ErrorCodeSequence
	default:
		return ErrorCodeSegmentInvalid
	}
}

func statusText(status AckStatus) string {
	if status == AckAccepted {
		return "MESSAGE ACCEPTED"
	}
	return "MESSAGE REJECTED"
}

func (b AperakBuilder) now() time.Time {
	if b.Clock != nil {
		return b.Clock().UTC()
	}
	return time.Now().UTC()
}

func (b AperakBuilder) newRef() string {
	if b.NewRef != nil {
		return b.NewRef()
	}
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return "ACK" + strings.ToUpper(hex.EncodeToString(buf[:]))
}
