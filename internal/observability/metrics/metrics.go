package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "coopmarket_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	interchangesParsed *prometheus.CounterVec
	messagesValidated  *prometheus.CounterVec
	aperaksIssued      *prometheus.CounterVec

	readingsIngested *prometheus.CounterVec
	readingConflicts prometheus.Counter

	settlementRuns    *prometheus.CounterVec
	settlementLatency *prometheus.HistogramVec

	reportExports *prometheus.CounterVec
)

// Init registers the market communication metrics. Safe to call more than
// once.
func Init() {
	registerOnce.Do(func() {
		interchangesParsed = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "edi_interchanges_total",
				Help: "Total parsed EDI interchanges by result",
			},
			[]string{"result"},
		)
		messagesValidated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "edi_messages_validated_total",
				Help: "Total validated EDI messages by type and verdict",
			},
			[]string{"message_type", "verdict"},
		)
		aperaksIssued = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "edi_aperaks_total",
				Help: "Total issued APERAK acknowledgments by status",
			},
			[]string{"status"},
		)

		readingsIngested = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "readings_ingested_total",
				Help: "Total reading submissions by source and outcome",
			},
			[]string{"source", "outcome"},
		)
		readingConflicts = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: metricPrefix + "reading_conflicts_total",
				Help: "Total duplicate reading submissions with conflicting values",
			},
		)

		settlementRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "settlement_runs_total",
				Help: "Total settlement attempts by result",
			},
			[]string{"result"},
		)
		settlementLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "settlement_latency_seconds",
				Help:    "Settlement run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		)

		reportExports = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "report_exports_total",
				Help: "Total settlement report exports by format and result",
			},
			[]string{"format", "result"},
		)

		prometheus.MustRegister(
			interchangesParsed,
			messagesValidated,
			aperaksIssued,
			readingsIngested,
			readingConflicts,
			settlementRuns,
			settlementLatency,
			reportExports,
		)
	})
}

// IncInterchangeParsed counts one parsed interchange.
func IncInterchangeParsed(ok bool) {
	if interchangesParsed == nil {
		return
	}
	result := resultSuccess
	if !ok {
		result = resultError
	}
	interchangesParsed.WithLabelValues(result).Inc()
}

// IncMessageValidated counts one validated message.
func IncMessageValidated(messageType string, valid bool) {
	if messagesValidated == nil {
		return
	}
	if messageType == "" {
		messageType = "unknown"
	}
	verdict := "valid"
	if !valid {
		verdict = "invalid"
	}
	messagesValidated.WithLabelValues(messageType, verdict).Inc()
}

// IncAperakIssued counts one issued acknowledgment.
func IncAperakIssued(status string) {
	if aperaksIssued == nil {
		return
	}
	if status == "" {
		status = "unknown"
	}
	aperaksIssued.WithLabelValues(status).Inc()
}

// IncReadingIngested counts one reading submission outcome.
func IncReadingIngested(source, outcome string) {
	if readingsIngested == nil {
		return
	}
	if source == "" {
		source = "unknown"
	}
	if outcome == "" {
		outcome = "unknown"
	}
	readingsIngested.WithLabelValues(source, outcome).Inc()
}

// IncReadingConflict counts one conflicting duplicate submission.
func IncReadingConflict() {
	if readingConflicts != nil {
		readingConflicts.Inc()
	}
}

// ObserveSettlement records one settlement attempt.
func ObserveSettlement(result string, duration time.Duration) {
	if result == "" {
		result = resultSuccess
	}
	if settlementRuns != nil {
		settlementRuns.WithLabelValues(result).Inc()
	}
	if settlementLatency != nil {
		settlementLatency.WithLabelValues(result).Observe(duration.Seconds())
	}
}

// IncReportExport records one settlement report export.
func IncReportExport(format, result string) {
	if reportExports == nil {
		return
	}
	if format == "" {
		format = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	reportExports.WithLabelValues(format, result).Inc()
}
