package readings

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction of an energy flow relative to the balance group.
type Direction string

const (
	// DirectionIn is energy fed into the group (generation).
	DirectionIn Direction = "IN"
	// DirectionOut is energy drawn from the group (consumption).
	DirectionOut Direction = "OUT"
)

// Source identifies the submission channel of a reading.
type Source string

const (
	SourceCSV      Source = "CSV"
	SourceAPI      Source = "API"
	SourceEDI      Source = "EDI"
	SourceVoicebot Source = "VOICEBOT"
)

// KnownSources lists every accepted submission channel.
func KnownSources() []Source {
	return []Source{SourceCSV, SourceAPI, SourceEDI, SourceVoicebot}
}

// EnergyReading is one metered energy value. Readings are immutable once
// stored; a conflicting re-submission is reported, never applied.
type EnergyReading struct {
	ID            string
	MeteringPoint string
	Timestamp     time.Time
	Value         decimal.Decimal
	Direction     Direction
	Source        Source
	SubmissionID  string
	ReceivedAt    time.Time
}

// Key returns the identity under which duplicates are detected.
func (r EnergyReading) Key() ReadingKey {
	return ReadingKey{
		MeteringPoint: r.MeteringPoint,
		UnixTimestamp: r.Timestamp.UTC().Unix(),
		Source:        r.Source,
	}
}

// ReadingKey is the duplicate-detection identity of a reading. The same
// metering point and timestamp may legitimately arrive over different
// channels, so the source is part of the key.
type ReadingKey struct {
	MeteringPoint string
	UnixTimestamp int64
	Source        Source
}
