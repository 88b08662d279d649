package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func sampleAlert() Alert {
	return Alert{
		MeteringPoint: "ZP001",
		Timestamp:     time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
		Source:        "CSV",
		ValueKWh:      "500",
		MeanKWh:       "5.1",
		StdDevKWh:     "0.2",
		ZScore:        "8.4",
	}
}

func TestWebhookNotifierPostsAlert(t *testing.T) {
	var gotBody []byte
	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.Notify(context.Background(), sampleAlert()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if gotContentType != "application/json" {
		t.Errorf("content type = %q", gotContentType)
	}
	var payload struct {
		MsgType string `json:"msgtype"`
		Text    struct {
			Content string `json:"content"`
		} `json:"text"`
	}
	if err := json.Unmarshal(gotBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.MsgType != "text" {
		t.Errorf("msgtype = %q", payload.MsgType)
	}
	for _, want := range []string{
		"Metering Point: ZP001",
		"Timestamp: 2024-01-15T12:00:00Z",
		"Value: 500 kWh",
		"Z-Score: 8.4",
	} {
		if !strings.Contains(payload.Text.Content, want) {
			t.Errorf("content missing %q:\n%s", want, payload.Text.Content)
		}
	}
}

func TestWebhookNotifierNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier, err := NewWebhookNotifier(server.URL, nil)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	if err := notifier.Notify(context.Background(), sampleAlert()); err == nil {
		t.Error("expected error on non-2xx response")
	}
}

func TestNewWebhookNotifierRequiresURL(t *testing.T) {
	if _, err := NewWebhookNotifier("", nil); err == nil {
		t.Error("expected error on empty url")
	}
}

func TestTemplateRender(t *testing.T) {
	tpl, err := NewTemplate("point {{.MeteringPoint}} value {{.ValueKWh}}")
	if err != nil {
		t.Fatalf("new template: %v", err)
	}
	got, err := tpl.Render(TemplateData{MeteringPoint: "ZP001", ValueKWh: "500"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if got != "point ZP001 value 500" {
		t.Errorf("rendered = %q", got)
	}

	if _, err := NewTemplate("{{.Broken"); err == nil {
		t.Error("expected parse error")
	}
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) Notify(context.Context, Alert) error {
	s.calls++
	return s.err
}

func TestMultiNotifierDeliversToAll(t *testing.T) {
	failing := &stubNotifier{err: errors.New("channel down")}
	ok := &stubNotifier{}

	err := NewMultiNotifier(failing, nil, ok).Notify(context.Background(), sampleAlert())
	if err == nil || err.Error() != "channel down" {
		t.Errorf("err = %v", err)
	}
	if failing.calls != 1 || ok.calls != 1 {
		t.Errorf("calls = %d %d", failing.calls, ok.calls)
	}
}
