package alerts

import (
	"context"
	"log"
	"time"
)

// Alert describes a suspicious meter reading. Alerts are advisory, the
// reading itself stays stored and settles normally.
type Alert struct {
	MeteringPoint string
	Timestamp     time.Time
	Source        string
	ValueKWh      string
	MeanKWh       string
	StdDevKWh     string
	ZScore        string
}

// Notifier delivers alerts to an operator channel.
type Notifier interface {
	Notify(ctx context.Context, alert Alert) error
}

// MultiNotifier fans an alert out to several notifiers. Delivery failures on
// one channel do not stop the others.
type MultiNotifier struct {
	notifiers []Notifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards the alert to all notifiers and returns the first failure.
func (m *MultiNotifier) Notify(ctx context.Context, alert Alert) error {
	if m == nil {
		return nil
	}
	var first error
	for _, notifier := range m.notifiers {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, alert); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// LogNotifier writes alerts to the service log. It is the default channel
// when no webhook is configured.
type LogNotifier struct {
	logger *log.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *log.Logger) *LogNotifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the alert.
func (n *LogNotifier) Notify(_ context.Context, alert Alert) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Printf("alert: reading anomaly point=%s ts=%s value=%s z=%s",
		alert.MeteringPoint, alert.Timestamp.Format(time.RFC3339), alert.ValueKWh, alert.ZScore)
	return nil
}
