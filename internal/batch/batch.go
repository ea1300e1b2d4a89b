// Package batch sequences groups of events against one or many jobs under
// the dependency and concurrency rules: the serial data batch, the ordered
// docs batch, and batch-of-jobs processing.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/phase"
	"github.com/jonathan/job-pipeline/internal/retry"
	"github.com/jonathan/job-pipeline/internal/store"
)

// DocEvents is the strict execution order of the docs batch. Each event
// checks the artifact dependency graph itself and refuses when an upstream
// file is missing; the batch never produces a dependency transitively.
var DocEvents = []string{
	"generate-resume-html",
	"generate-coverletter-html",
	"generate-resume-pdf",
	"generate-coverletter-pdf",
}

// BatchError reports which event of a batch failed and how.
type BatchError struct {
	Event  string
	JobID  string
	Result events.Result
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch stopped at %s for job %s: %s", e.Event, e.JobID, e.Result.Message)
}

// Runner executes batches through the retry policy, so any exhausted event
// lands the job in errored per the escalation rules.
type Runner struct {
	Store  *store.Store
	Policy *retry.Policy
	Phases *phase.Manager
	Logger *slog.Logger
}

// NewRunner wires a batch runner.
func NewRunner(st *store.Store, policy *retry.Policy, phases *phase.Manager, logger *slog.Logger) *Runner {
	return &Runner{Store: st, Policy: policy, Phases: phases, Logger: logger}
}

// RunDataBatch generates all 8 subcontent sections for one job, serially
// and in declaration order. Sections run one at a time by design: LLM
// providers are rate-sensitive, so fan-out across sections of one job is
// not attempted. On all 8 succeeding the job transitions to data_generated.
func (r *Runner) RunDataBatch(ctx context.Context, rec *store.Record, ec *events.Context) error {
	if len(rec.Subcontent) != len(artifacts.Sections) {
		return fmt.Errorf("job %s has %d configured sections, need %d",
			rec.Identity.JobID, len(rec.Subcontent), len(artifacts.Sections))
	}
	for _, section := range artifacts.Sections {
		spec, ok := rec.Subcontent[section]
		if !ok {
			return fmt.Errorf("job %s has no configured event for section %s", rec.Identity.JobID, section)
		}
		res := r.Policy.Do(ctx, spec.Event, rec, ec)
		if !res.OK {
			return &BatchError{Event: spec.Event, JobID: rec.Identity.JobID, Result: res}
		}
	}
	return r.Phases.Transition(rec, store.PhaseDataGenerated)
}

// RunDocsBatch executes the document events strictly in DocEvents order and
// transitions the job to docs_generated when all four artifacts exist.
func (r *Runner) RunDocsBatch(ctx context.Context, rec *store.Record, ec *events.Context) error {
	for _, name := range DocEvents {
		res := r.Policy.Do(ctx, name, rec, ec)
		if !res.OK {
			return &BatchError{Event: name, JobID: rec.Identity.JobID, Result: res}
		}
	}
	return r.Phases.Transition(rec, store.PhaseDocsGenerated)
}

// Summary reports one batch-of-jobs pass.
type Summary struct {
	Attempted  int
	Progressed int
	Failed     int
}

// ProcessQueued advances every queued job through the data batch and then
// the docs batch, and finishes jobs already in data_generated. Jobs are
// processed serially to respect external rate limits, and one job's failure
// never halts the batch: the failed job lands in errored and processing
// continues with the next.
func (r *Runner) ProcessQueued(ctx context.Context, ec *events.Context) (Summary, error) {
	var summary Summary

	queued, err := r.Store.List(store.PhaseQueued)
	if err != nil {
		return summary, fmt.Errorf("listing queued jobs: %w", err)
	}
	pending, err := r.Store.List(store.PhaseDataGenerated)
	if err != nil {
		return summary, fmt.Errorf("listing data_generated jobs: %w", err)
	}

	for _, rec := range queued {
		summary.Attempted++
		if err := r.RunDataBatch(ctx, rec, ec); err != nil {
			summary.Failed++
			r.Logger.Warn("data batch failed", "job_id", rec.Identity.JobID, "error", err)
			continue
		}
		if err := r.RunDocsBatch(ctx, rec, ec); err != nil {
			summary.Failed++
			r.Logger.Warn("docs batch failed", "job_id", rec.Identity.JobID, "error", err)
			continue
		}
		summary.Progressed++
	}

	for _, rec := range pending {
		summary.Attempted++
		if err := r.RunDocsBatch(ctx, rec, ec); err != nil {
			summary.Failed++
			r.Logger.Warn("docs batch failed", "job_id", rec.Identity.JobID, "error", err)
			continue
		}
		summary.Progressed++
	}

	return summary, nil
}

// ExpireStale archives queued jobs whose posting is older than maxAge. The
// expired phase is otherwise only reachable through this external trigger.
func (r *Runner) ExpireStale(ctx context.Context, maxAge time.Duration) (int, error) {
	queued, err := r.Store.List(store.PhaseQueued)
	if err != nil {
		return 0, fmt.Errorf("listing queued jobs: %w", err)
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	expired := 0
	for _, rec := range queued {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		if rec.Identity.PostedAt.After(cutoff) {
			continue
		}
		if err := r.Phases.Transition(rec, store.PhaseExpired); err != nil {
			r.Logger.Warn("expiring job failed", "job_id", rec.Identity.JobID, "error", err)
			continue
		}
		expired++
	}
	return expired, nil
}
