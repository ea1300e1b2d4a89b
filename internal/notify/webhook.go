package notify

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/jonathan/job-pipeline/internal/identity"
)

const (
	webhookBuffer  = 64
	webhookTimeout = 10 * time.Second
)

type webhookPayload struct {
	Kind      Kind              `json:"kind"`
	Identity  identity.Identity `json:"identity"`
	Payload   map[string]any    `json:"payload,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// WebhookSink POSTs each notification as JSON to a configured endpoint.
// Notify enqueues and returns immediately; when the buffer is full the
// notification is dropped, which is the correct best-effort behavior.
type WebhookSink struct {
	url    string
	client *http.Client
	logger *slog.Logger
	queue  chan webhookPayload
	done   chan struct{}
}

// NewWebhookSink starts the delivery goroutine and returns the sink. Close
// stops delivery after draining the queue.
func NewWebhookSink(url string, logger *slog.Logger) *WebhookSink {
	s := &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
		queue:  make(chan webhookPayload, webhookBuffer),
		done:   make(chan struct{}),
	}
	go s.deliver()
	return s
}

func (s *WebhookSink) Notify(kind Kind, id identity.Identity, payload map[string]any) {
	p := webhookPayload{Kind: kind, Identity: id, Payload: payload, Timestamp: time.Now().UTC()}
	select {
	case s.queue <- p:
	default:
		s.logger.Warn("webhook queue full, dropping notification", "kind", string(kind), "job_id", id.JobID)
	}
}

// Close drains and stops the delivery goroutine.
func (s *WebhookSink) Close() {
	close(s.queue)
	<-s.done
}

func (s *WebhookSink) deliver() {
	defer close(s.done)
	for p := range s.queue {
		body, err := json.Marshal(p)
		if err != nil {
			s.logger.Error("webhook payload marshal failed", "error", err)
			continue
		}
		resp, err := s.client.Post(s.url, "application/json", bytes.NewReader(body))
		if err != nil {
			s.logger.Warn("webhook delivery failed", "kind", string(p.Kind), "error", err)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode >= 300 {
			s.logger.Warn("webhook delivery rejected", "kind", string(p.Kind), "status", resp.StatusCode)
		}
	}
}
