package alert

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"crowdwatch/internal/model"

	"github.com/sirupsen/logrus"
)

// WebhookNotifier delivers alerts to an operator endpoint as an HTTP POST.
// The body is the alert JSON, or a rendered text template when one is
// configured.
type WebhookNotifier struct {
	url             string
	enabled         bool
	retryAttempts   int
	messageTemplate *template.Template
	client          *http.Client
	logger          *logrus.Logger
}

type webhookPayload struct {
	Alert model.Alert `json:"alert"`
	Text  string      `json:"text,omitempty"`
}

func NewWebhookNotifier(url string, timeout time.Duration, retryAttempts int, messageTemplate string, enabled bool, logger *logrus.Logger) *WebhookNotifier {
	wn := &WebhookNotifier{
		url:           url,
		enabled:       enabled,
		retryAttempts: retryAttempts,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}

	if strings.TrimSpace(messageTemplate) != "" {
		funcMap := template.FuncMap{
			"formatTime": func(t time.Time, layout string) string {
				return t.Format(layout)
			},
		}
		tmpl, err := template.New("webhook_message").Funcs(funcMap).Parse(messageTemplate)
		if err != nil {
			logger.Warnf("Failed to parse webhook message template: %v, using default format", err)
		} else {
			wn.messageTemplate = tmpl
		}
	}

	return wn
}

func (wn *WebhookNotifier) SendAlert(alert model.Alert) error {
	if !wn.enabled {
		wn.logger.Debug("Webhook notifier is disabled, skipping alert")
		return nil
	}

	payload := webhookPayload{Alert: alert}
	if wn.messageTemplate != nil {
		var buf bytes.Buffer
		if err := wn.messageTemplate.Execute(&buf, alert); err != nil {
			wn.logger.Warnf("Failed to render webhook template: %v", err)
		} else {
			payload.Text = buf.String()
		}
	}

	for i := 0; i < wn.retryAttempts; i++ {
		err := wn.post(payload)
		if err == nil {
			return nil
		}

		wn.logger.Warnf("Failed to send alert (attempt %d/%d): %v", i+1, wn.retryAttempts, err)

		if i < wn.retryAttempts-1 {
			time.Sleep(time.Duration(i+1) * time.Second)
		}
	}

	return fmt.Errorf("failed to send alert after %d attempts", wn.retryAttempts)
}

func (wn *WebhookNotifier) post(payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	resp, err := wn.client.Post(wn.url, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %s", resp.Status)
	}
	return nil
}
