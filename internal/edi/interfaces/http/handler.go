package edihttp

import (
	"errors"
	"io"
	"net/http"

	"coopmarket/internal/edi/application"
	edi "coopmarket/internal/edi/domain"
)

const maxInterchangeBytes = 4 << 20

// InterchangeHandler accepts raw inbound EDIFACT transmissions and answers
// with the acknowledgment interchange.
type InterchangeHandler struct {
	processor *application.Processor
}

// NewInterchangeHandler constructs an InterchangeHandler.
func NewInterchangeHandler(processor *application.Processor) *InterchangeHandler {
	return &InterchangeHandler{processor: processor}
}

// ServeHTTP handles POST /api/v1/edi/interchanges.
func (h *InterchangeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.processor == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxInterchangeBytes))
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	if len(raw) == 0 {
		http.Error(w, "empty interchange", http.StatusBadRequest)
		return
	}

	result, err := h.processor.Process(r.Context(), raw)
	if err != nil {
		if errors.Is(err, edi.ErrMalformedInterchange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, "process interchange error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/edifact")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.AperakBytes())
}
