// Package notify implements the downstream notification collaborators the
// Confirmer fans out to: an HTTP webhook emitter, a Redis-backed live
// notifier for cross-process UI fan-out, and a logging-only email
// notifier — the trigger contract only, since delivery mechanics are out
// of scope.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cosmasken/paymebro-backend-sub000/payments"
)

// HTTPWebhookNotifier implements payments.WebhookNotifier with a minimal
// JSON POST client, scaled down from the teacher's
// libs/clients.SimpleHTTPClient: a single fixed endpoint rather than a
// full base-URL/path client, since webhook delivery mechanics beyond the
// emit contract are explicitly out of scope.
type HTTPWebhookNotifier struct {
	endpoint string
	client   *http.Client
}

// NewHTTPWebhookNotifier constructs a notifier that POSTs to endpoint.
func NewHTTPWebhookNotifier(endpoint string) *HTTPWebhookNotifier {
	return &HTTPWebhookNotifier{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Emit implements payments.WebhookNotifier.
func (n *HTTPWebhookNotifier) Emit(ctx context.Context, event string, payload payments.WebhookPayload) error {
	body, err := json.Marshal(struct {
		Event   string                   `json:"event"`
		Payload payments.WebhookPayload `json:"payload"`
	}{Event: event, Payload: payload})
	if err != nil {
		return fmt.Errorf("notify: marshal webhook body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: webhook post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: webhook endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
