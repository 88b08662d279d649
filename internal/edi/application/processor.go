package application

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"coopmarket/internal/audit"
	edi "coopmarket/internal/edi/domain"
	"coopmarket/internal/observability/metrics"
)

// Directions a reading can flow relative to the balance group. Generation
// feeds in, consumption draws out.
const (
	DirectionIn  = "IN"
	DirectionOut = "OUT"
)

// EventPublisher emits integration events.
type EventPublisher interface {
	Publish(ctx context.Context, event any) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// MessageResult is the processing outcome for one inbound message.
type MessageResult struct {
	MessageType string
	Verdict     edi.Verdict
	Record      edi.AcknowledgmentRecord
	Aperak      []byte
	Extracts    []ReadingExtracted
}

// Result is the processing outcome for one inbound interchange.
type Result struct {
	ControlReference string
	Messages         []MessageResult
}

// AperakBytes concatenates the acknowledgment interchanges of all messages.
func (r Result) AperakBytes() []byte {
	var out []byte
	for _, m := range r.Messages {
		out = append(out, m.Aperak...)
	}
	return out
}

// Processor runs the inbound pipeline: lex, validate, acknowledge, and for
// accepted MSCONS messages extract meter readings.
type Processor struct {
	grammars  map[string]edi.Grammar
	builder   edi.AperakBuilder
	publisher EventPublisher
	auditor   audit.Logger
	clock     Clock
	logger    *log.Logger
}

// NewProcessor constructs the processor. The auditor may be nil.
func NewProcessor(
	grammars map[string]edi.Grammar,
	builder edi.AperakBuilder,
	publisher EventPublisher,
	auditor audit.Logger,
	clock Clock,
	logger *log.Logger,
) (*Processor, error) {
	if len(grammars) == 0 {
		return nil, errors.New("edi processor: no grammars")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		grammars:  grammars,
		builder:   builder,
		publisher: publisher,
		auditor:   auditor,
		clock:     clock,
		logger:    logger,
	}, nil
}

// Process handles one raw inbound interchange. A syntactically broken
// transmission cannot be acknowledged and is returned as an error; everything
// that frames correctly gets an APERAK per message, positive or negative.
func (p *Processor) Process(ctx context.Context, raw []byte) (Result, error) {
	inter, err := edi.Lex(raw)
	if err != nil {
		metrics.IncInterchangeParsed(false)
		return Result{}, err
	}
	metrics.IncInterchangeParsed(true)

	result := Result{ControlReference: inter.ControlReference}
	for _, msg := range inter.Messages {
		msgResult, err := p.processMessage(ctx, inter, msg)
		if err != nil {
			return Result{}, err
		}
		result.Messages = append(result.Messages, msgResult)
	}
	return result, nil
}

func (p *Processor) processMessage(ctx context.Context, inter *edi.Interchange, msg edi.Message) (MessageResult, error) {
	verdict, err := edi.ValidateInterchange(inter, p.grammars, msg)
	if err != nil {
		// Unknown type: reject with an unsupported-type acknowledgment.
		if errors.Is(err, edi.ErrUnknownMessageType) {
			return p.rejectUnsupported(ctx, inter, msg)
		}
		return MessageResult{}, err
	}
	metrics.IncMessageValidated(msg.Type, verdict.Valid())

	ack, record := p.builder.Build(inter, msg, verdict)
	out := MessageResult{
		MessageType: msg.Type,
		Verdict:     verdict,
		Record:      record,
		Aperak:      edi.Serialize(ack),
	}
	metrics.IncAperakIssued(string(record.Status))

	if record.Status == edi.AckAccepted && msg.Type == edi.MessageTypeMSCONS {
		extracts, err := p.extractReadings(msg)
		if err != nil {
			p.logger.Printf("edi: reading extraction failed for message %s: %v", msg.Reference, err)
		} else {
			out.Extracts = extracts
		}
	}

	p.publishOutcome(ctx, inter, out)
	p.auditOutcome(ctx, inter, out)
	return out, nil
}

func (p *Processor) rejectUnsupported(ctx context.Context, inter *edi.Interchange, msg edi.Message) (MessageResult, error) {
	verdict := edi.Verdict{
		MessageType: msg.Type,
		Violations:  []edi.Violation{{RuleIndex: -1, Tag: edi.TagUNH, Kind: edi.ViolationUnexpected}},
	}
	metrics.IncMessageValidated(msg.Type, false)
	ack, record := p.builder.Build(inter, msg, verdict)
	metrics.IncAperakIssued(string(record.Status))
	out := MessageResult{
		MessageType: msg.Type,
		Verdict:     verdict,
		Record:      record,
		Aperak:      edi.Serialize(ack),
	}
	p.publishOutcome(ctx, inter, out)
	p.auditOutcome(ctx, inter, out)
	return out, nil
}

func (p *Processor) auditOutcome(ctx context.Context, inter *edi.Interchange, out MessageResult) {
	if p.auditor == nil {
		return
	}
	metadata, err := json.Marshal(map[string]any{
		"message_type":    out.MessageType,
		"status":          string(out.Record.Status),
		"violation_codes": out.Record.ViolationCodes,
		"extract_count":   len(out.Extracts),
	})
	if err != nil {
		metadata = nil
	}
	err = p.auditor.Log(ctx, audit.Entry{
		Actor:        inter.SenderID,
		Action:       "edi.acknowledge",
		ResourceType: "interchange",
		ResourceID:   inter.ControlReference,
		Metadata:     metadata,
	})
	if err != nil {
		p.logger.Printf("edi: audit log: %v", err)
	}
}

func (p *Processor) publishOutcome(ctx context.Context, inter *edi.Interchange, out MessageResult) {
	if p.publisher == nil {
		return
	}
	now := p.clock.Now().UTC()
	err := p.publisher.Publish(ctx, InterchangeAcknowledged{
		InterchangeReference: inter.ControlReference,
		MessageReference:     out.Record.MessageReference,
		MessageType:          out.MessageType,
		Status:               string(out.Record.Status),
		ViolationCount:       len(out.Verdict.Violations),
		OccurredAt:           now,
	})
	if err != nil {
		p.logger.Printf("edi: publish acknowledgment event: %v", err)
	}
	for _, extract := range out.Extracts {
		if err := p.publisher.Publish(ctx, extract); err != nil {
			p.logger.Printf("edi: publish reading extract: %v", err)
		}
	}
}

// extractReadings scans an MSCONS message positionally. A LOC segment with the
// metering point qualifier opens a position block and each QTY afterwards
// yields one reading until the next LOC. A DTM with the message date qualifier
// inside a block stamps that block; blocks without their own DTM fall back to
// the message-level one.
func (p *Processor) extractReadings(msg edi.Message) ([]ReadingExtracted, error) {
	var (
		extracts      []ReadingExtracted
		meteringPoint string
		messageTime   time.Time
		blockTime     time.Time
		haveMsgTime   bool
		haveBlockTime bool
	)
	now := p.clock.Now().UTC()

	for _, seg := range msg.Segments {
		switch record := edi.MapSegment(seg).(type) {
		case edi.LocationRecord:
			if record.Qualifier == edi.LocationQualifierMeteringPoint {
				meteringPoint = record.Code
				haveBlockTime = false
			}
		case edi.DateRecord:
			if record.Qualifier != edi.DateQualifierMessage {
				continue
			}
			t, err := record.Time()
			if err != nil {
				return nil, err
			}
			if meteringPoint == "" {
				messageTime = t
				haveMsgTime = true
			} else {
				blockTime = t
				haveBlockTime = true
			}
		case edi.QuantityRecord:
			if meteringPoint == "" {
				continue
			}
			timestamp := messageTime
			ok := haveMsgTime
			if haveBlockTime {
				timestamp = blockTime
				ok = true
			}
			if !ok {
				continue
			}
			direction, valid := quantityDirection(record.Qualifier)
			if !valid {
				continue
			}
			extracts = append(extracts, ReadingExtracted{
				MessageReference: msg.Reference,
				MeteringPoint:    meteringPoint,
				Timestamp:        timestamp,
				Value:            record.Value,
				Unit:             record.Unit,
				Direction:        direction,
				OccurredAt:       now,
			})
		}
	}
	return extracts, nil
}

func quantityDirection(qualifier string) (string, bool) {
	switch qualifier {
	case edi.QuantityQualifierConsumption, edi.QuantityQualifierConsumptionAlt:
		return DirectionOut, true
	case edi.QuantityQualifierGeneration, edi.QuantityQualifierGenerationAlt:
		return DirectionIn, true
	default:
		return "", false
	}
}
