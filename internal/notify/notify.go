// Package notify defines the push channel the core calls on every phase
// change, event completion, and error. Delivery is fire-and-forget: a sink
// must never block the core.
package notify

import (
	"log/slog"

	"github.com/jonathan/job-pipeline/internal/identity"
)

// Kind names the notification categories the core emits.
type Kind string

const (
	KindPhaseChanged   Kind = "phaseChanged"
	KindEventCompleted Kind = "eventCompleted"
	KindEventFailed    Kind = "eventFailed"
)

// Sink receives notifications from the core. Implementations must return
// promptly; slow delivery belongs on the sink's own goroutine.
type Sink interface {
	Notify(kind Kind, id identity.Identity, payload map[string]any)
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(Kind, identity.Identity, map[string]any) {}

// LogSink writes notifications to a structured logger.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Notify(kind Kind, id identity.Identity, payload map[string]any) {
	args := []any{"kind", string(kind), "job_id", id.JobID, "company", id.Company, "title", id.Title}
	for k, v := range payload {
		args = append(args, k, v)
	}
	s.logger.Info("notification", args...)
}

// Multi fans one notification out to several sinks.
type Multi []Sink

func (m Multi) Notify(kind Kind, id identity.Identity, payload map[string]any) {
	for _, s := range m {
		s.Notify(kind, id, payload)
	}
}
