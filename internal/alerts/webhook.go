package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"
)

// WebhookNotifier posts rendered alerts to an operator webhook.
type WebhookNotifier struct {
	url      string
	client   *http.Client
	template *Template
}

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// NewWebhookNotifier constructs a notifier. A nil template falls back to
// DefaultTemplate.
func NewWebhookNotifier(url string, tpl *Template) (*WebhookNotifier, error) {
	if url == "" {
		return nil, errors.New("webhook notifier: empty url")
	}
	if tpl == nil {
		var err error
		tpl, err = NewTemplate("")
		if err != nil {
			return nil, err
		}
	}
	return &WebhookNotifier{
		url:      url,
		client:   &http.Client{Timeout: 10 * time.Second},
		template: tpl,
	}, nil
}

// Notify sends the alert to the webhook.
func (n *WebhookNotifier) Notify(ctx context.Context, alert Alert) error {
	if n == nil || n.url == "" {
		return errors.New("webhook notifier: empty url")
	}
	content, err := n.template.Render(TemplateData{
		MeteringPoint: alert.MeteringPoint,
		Timestamp:     alert.Timestamp.UTC().Format(time.RFC3339),
		Source:        alert.Source,
		ValueKWh:      alert.ValueKWh,
		MeanKWh:       alert.MeanKWh,
		StdDevKWh:     alert.StdDevKWh,
		ZScore:        alert.ZScore,
		Suggestion:    "Verify the meter reading with the member before the next settlement run.",
	})
	if err != nil {
		return err
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: content},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.New("webhook notifier: non-2xx")
	}
	return nil
}
