package edihttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"coopmarket/internal/edi/application"
	edi "coopmarket/internal/edi/domain"
)

const sampleMSCONS = "UNB+UNOC:3+4012345678901+4044444444444+240101:0830+REF001'" +
	"UNH+MSG001+MSCONS:D:04B:UN:2.4c'" +
	"BGM+7+DOC001+9'" +
	"DTM+137:202401011200:203'" +
	"NAD+MS+4012345678901::9'" +
	"LOC+172+DE0001111111111'" +
	"QTY+220:510.2:KWH'" +
	"UNT+7+MSG001'" +
	"UNZ+1+REF001'"

type dropPublisher struct{}

func (dropPublisher) Publish(context.Context, any) error { return nil }

type fixedClock struct{ at time.Time }

func (c fixedClock) Now() time.Time { return c.at }

func newHandler(t *testing.T) *InterchangeHandler {
	t.Helper()
	builder := edi.AperakBuilder{
		SenderID: "9900000000001",
		Clock:    func() time.Time { return time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC) },
	}
	processor, err := application.NewProcessor(
		edi.BuiltinGrammars(), builder, dropPublisher{}, nil,
		fixedClock{at: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}, nil,
	)
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	return NewInterchangeHandler(processor)
}

func TestInterchangeHandlerAnswersWithAperak(t *testing.T) {
	handler := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edi/interchanges", strings.NewReader(sampleMSCONS))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/edifact" {
		t.Errorf("content type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "APERAK") {
		t.Errorf("response is not an acknowledgment:\n%s", body)
	}
	// Accepted message, no error codes reported.
	if strings.Contains(body, "ERC+") {
		t.Errorf("unexpected error segment:\n%s", body)
	}
}

func TestInterchangeHandlerMalformedIs400(t *testing.T) {
	handler := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edi/interchanges", strings.NewReader("UNB+garbage"))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestInterchangeHandlerEmptyBodyIs400(t *testing.T) {
	handler := newHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/edi/interchanges", strings.NewReader(""))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d", rec.Code)
	}
}

func TestInterchangeHandlerMethodNotAllowed(t *testing.T) {
	handler := newHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/edi/interchanges", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d", rec.Code)
	}
}
