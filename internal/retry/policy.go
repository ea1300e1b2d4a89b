// Package retry wraps the executor with the bounded retry and error
// escalation policy: failing events are re-attempted a fixed number of
// times, then the job is moved to the errored phase with a diagnostic
// artifact.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/executor"
	"github.com/jonathan/job-pipeline/internal/phase"
	"github.com/jonathan/job-pipeline/internal/store"
)

const (
	// DefaultAttempts is the total number of attempts, including the first.
	DefaultAttempts = 3
	// DefaultDelay is the fixed pause between attempts. Fixed rather than
	// exponential: the bound is small and the failing collaborators are
	// rate-sensitive, not congestion-sensitive.
	DefaultDelay = 2 * time.Second

	// escalation retries its own phase transition: failing to record an
	// error is more severe than failing to run the original event.
	escalateAttempts = 3
	escalateDelay    = time.Second
)

// Policy retries one event against one job and escalates on exhaustion.
type Policy struct {
	Exec     *executor.Executor
	Phases   *phase.Manager
	Logger   *slog.Logger
	Attempts int
	Delay    time.Duration
}

// NewPolicy returns a policy with the default bounds.
func NewPolicy(exec *executor.Executor, phases *phase.Manager, logger *slog.Logger) *Policy {
	return &Policy{
		Exec:     exec,
		Phases:   phases,
		Logger:   logger,
		Attempts: DefaultAttempts,
		Delay:    DefaultDelay,
	}
}

// Do runs the event with retries. Validation and dependency failures fail
// fast on the first attempt; an unknown event name is surfaced immediately
// without touching the job. After the last failed attempt the job is moved
// to errored with a diagnostic artifact, unless the event is declared
// non-blocking, in which case the failure is logged and the job stays put.
func (p *Policy) Do(ctx context.Context, name string, rec *store.Record, ec *events.Context) events.Result {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = DefaultAttempts
	}

	var res events.Result
	var attempt int
	for attempt = 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			// Serialize against any concurrent activity on this job before
			// re-attempting, then pause for the fixed delay.
			p.Exec.WaitIdle(rec.Identity.JobID)
			select {
			case <-time.After(p.delay()):
			case <-ctx.Done():
				return events.Failure(events.KindExternalService, "retry of %s canceled: %v", name, ctx.Err())
			}
		}

		res = p.Exec.Run(ctx, name, rec, ec)
		if res.OK {
			return res
		}

		kind := res.FirstKind()
		if kind == events.KindNotFound {
			// Unknown event: the trigger source gets this directly, with no
			// retries and no errored transition.
			return res
		}
		if !kind.Retryable() {
			break
		}
		p.Logger.Warn("event attempt failed",
			"event", name,
			"job_id", rec.Identity.JobID,
			"attempt", attempt,
			"kind", string(kind),
			"error", res.Message,
		)
	}

	if p.nonBlocking(name) {
		p.Logger.Warn("non-blocking event exhausted retries, leaving phase unchanged",
			"event", name,
			"job_id", rec.Identity.JobID,
			"kind", string(res.FirstKind()),
		)
		return res
	}

	if err := p.escalate(ctx, name, rec, res, min(attempt, attempts)); err != nil {
		p.Logger.Error("error escalation failed",
			"event", name,
			"job_id", rec.Identity.JobID,
			"error", err,
		)
		failure := events.Failure(events.KindFatalIO, "escalating %s failure: %v", name, err)
		failure.Errors = append(failure.Errors, res.Errors...)
		return failure
	}
	return res
}

func (p *Policy) delay() time.Duration {
	if p.Delay > 0 {
		return p.Delay
	}
	return DefaultDelay
}

func (p *Policy) nonBlocking(name string) bool {
	ev, err := p.Exec.Registry.Resolve(name)
	if err != nil {
		return false
	}
	nb, ok := ev.(events.NonBlocker)
	return ok && nb.NonBlocking()
}

// escalate records the terminal failure: an ErrorRecord on the job, a
// human-readable diagnostic artifact, and the transition to errored. The
// transition is retried and never silently dropped.
func (p *Policy) escalate(ctx context.Context, name string, rec *store.Record, res events.Result, attempts int) error {
	p.Exec.WaitIdle(rec.Identity.JobID)

	kind := res.FirstKind()
	errRec := &store.ErrorRecord{
		Event:          name,
		JobID:          rec.Identity.JobID,
		PhaseAtFailure: rec.Phase,
		Message:        res.Message,
		Attempts:       attempts,
		Timestamp:      time.Now().UTC(),
	}
	rec.LastError = errRec

	report := diagnosticReport(rec, errRec, kind)
	if err := p.Exec.Store.WriteArtifact(rec, artifacts.ErrorReport, []byte(report)); err != nil {
		return fmt.Errorf("writing diagnostic artifact: %w", err)
	}
	if err := p.Exec.Store.AppendLog(rec, name, fmt.Sprintf("exhausted %d attempts (%s): %s", attempts, kind, res.Message)); err != nil {
		return fmt.Errorf("recording exhaustion: %w", err)
	}

	var lastErr error
	for i := 0; i < escalateAttempts; i++ {
		if i > 0 {
			select {
			case <-time.After(escalateDelay):
			case <-ctx.Done():
				return fmt.Errorf("errored transition canceled: %w", ctx.Err())
			}
		}
		if lastErr = p.Phases.Transition(rec, store.PhaseErrored); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("transition to errored failed after %d attempts: %w", escalateAttempts, lastErr)
}

// diagnosticReport renders the plain-text artifact a user reads to recover a
// failed job without special tooling.
func diagnosticReport(rec *store.Record, errRec *store.ErrorRecord, kind events.Kind) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Event failure: %s\n\n", errRec.Event)
	fmt.Fprintf(&b, "- Job: %s at %s (id %s)\n", rec.Identity.Title, rec.Identity.Company, rec.Identity.JobID)
	fmt.Fprintf(&b, "- Phase at failure: %s\n", errRec.PhaseAtFailure)
	fmt.Fprintf(&b, "- Attempts: %d\n", errRec.Attempts)
	fmt.Fprintf(&b, "- Failure kind: %s\n", kind)
	fmt.Fprintf(&b, "- Time: %s\n\n", errRec.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(&b, "## Error\n\n%s\n\n", errRec.Message)
	fmt.Fprintf(&b, "## Recommended action\n\n%s\n", kind.RecommendedAction())
	return b.String()
}
