// -----------------------------------------------------------------------
// Webhook Sink - POSTs completed analyses to a configured endpoint
// -----------------------------------------------------------------------

package sinks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/specto/internal/common"
	"github.com/ternarybob/specto/internal/httpclient"
	"github.com/ternarybob/specto/internal/interfaces"
	"github.com/ternarybob/specto/internal/models"
)

// webhookPayload is the JSON body delivered to the webhook endpoint
type webhookPayload struct {
	AnalysisID string                 `json:"analysis_id"`
	URL        string                 `json:"url"`
	Status     string                 `json:"status"`
	Record     *models.BusinessRecord `json:"record"`
}

// WebhookSink delivers completed analyses to an external endpoint with
// a single POST per analysis. Deliveries are never retried; a failure
// is reported once and the endpoint can pull the record via the API.
type WebhookSink struct {
	config common.WebhookSinkConfig
	client *http.Client
	logger arbor.ILogger
}

// NewWebhookSink creates the webhook delivery sink
func NewWebhookSink(config common.WebhookSinkConfig, logger arbor.ILogger) *WebhookSink {
	return &WebhookSink{
		config: config,
		client: httpclient.NewDefaultHTTPClient(config.Timeout),
		logger: logger,
	}
}

// Name identifies the sink in logs and error maps
func (s *WebhookSink) Name() string {
	return "webhook"
}

// Deliver POSTs the analysis payload as JSON
func (s *WebhookSink) Deliver(ctx context.Context, job *models.AnalysisJob, record *models.BusinessRecord) error {
	if s.config.URL == "" {
		return fmt.Errorf("webhook url not configured")
	}

	payload := webhookPayload{
		AnalysisID: job.ID,
		URL:        job.URL,
		Status:     string(job.Status),
		Record:     record,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.config.Secret != "" {
		req.Header.Set("Authorization", "Bearer "+s.config.Secret)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("webhook endpoint returned %d: %s", resp.StatusCode, string(respBody))
	}

	return nil
}

var _ interfaces.ResultSink = (*WebhookSink)(nil)
