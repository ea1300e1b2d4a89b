// Package executor runs named events against job records: it resolves the
// event, enforces a wall-clock bound, converts panics into structured
// failures, and serializes executions per job.
package executor

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/notify"
	"github.com/jonathan/job-pipeline/internal/store"
)

// DefaultTimeout is the hard wall-clock bound on one event execution.
// Externally-bound operations (LLM calls, network fetches, rendering) must
// finish inside it or the execution is reported as failed, never hung.
const DefaultTimeout = 5 * time.Minute

// Executor dispatches events. An event's internal failure never propagates
// as a process-level fault: every outcome is an events.Result value.
type Executor struct {
	Registry *events.Registry
	Store    *store.Store
	Sink     notify.Sink
	Timeout  time.Duration

	locks *jobLocks
}

// New returns an executor with the default timeout.
func New(reg *events.Registry, st *store.Store, sink notify.Sink) *Executor {
	if sink == nil {
		sink = notify.Noop{}
	}
	return &Executor{
		Registry: reg,
		Store:    st,
		Sink:     sink,
		Timeout:  DefaultTimeout,
		locks:    newJobLocks(),
	}
}

// Run executes one named event against one job. The event receives its own
// copy of the context scratch map, runs under the wall-clock bound, and has
// any panic converted into a failing result. At most one event runs against
// a given job at a time.
func (e *Executor) Run(ctx context.Context, name string, rec *store.Record, ec *events.Context) events.Result {
	ev, err := e.Registry.Resolve(name)
	if err != nil {
		var nf *events.NotFoundError
		if errors.As(err, &nf) {
			return events.Failure(events.KindNotFound, "%s", nf.Error())
		}
		return events.Failure(events.KindInternal, "resolving event %s: %v", name, err)
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	release := e.locks.acquire(rec.Identity.JobID)
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var timedOut atomic.Bool
	done := make(chan events.Result, 1)
	go func() {
		defer release()
		res := e.invoke(runCtx, ev, rec, ec.Clone())
		// After a timeout the caller has moved on; skip record mutation so
		// a later execution never races with this stale one.
		if !timedOut.Load() {
			e.record(name, rec, res)
		}
		done <- res
	}()

	select {
	case res := <-done:
		e.emit(name, rec, res)
		return res
	case <-runCtx.Done():
		timedOut.Store(true)
		var res events.Result
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			res = events.Failure(events.KindExternalService,
				"event %s exceeded the %s wall-clock bound", name, timeout)
		} else {
			res = events.Failure(events.KindExternalService,
				"event %s canceled: %v", name, runCtx.Err())
		}
		e.emit(name, rec, res)
		return res
	}
}

// RunSync is a blocking convenience wrapper with semantics identical to Run,
// for callers that cannot suspend on a channel of their own.
func (e *Executor) RunSync(ctx context.Context, name string, rec *store.Record, ec *events.Context) events.Result {
	return e.Run(ctx, name, rec, ec)
}

// Invocation pairs an event name with the record it targets.
type Invocation struct {
	Event  string
	Record *store.Record
}

// IndexedResult carries a fan-out result together with the input index it
// belongs to; completion order is not input order.
type IndexedResult struct {
	Index  int
	Event  string
	JobID  string
	Result events.Result
}

// RunParallel fans out independent invocations, typically across different
// jobs. The caller supplies the concurrency bound; limit <= 0 means
// unbounded. Invocations sharing a job still serialize on the job lock.
func (e *Executor) RunParallel(ctx context.Context, invs []Invocation, ec *events.Context, limit int) []IndexedResult {
	results := make([]IndexedResult, len(invs))
	g, gCtx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, inv := range invs {
		g.Go(func() error {
			results[i] = IndexedResult{
				Index:  i,
				Event:  inv.Event,
				JobID:  inv.Record.Identity.JobID,
				Result: e.Run(gCtx, inv.Event, inv.Record, ec),
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// WaitIdle blocks until no event is executing against the job.
func (e *Executor) WaitIdle(jobID string) {
	release := e.locks.acquire(jobID)
	release()
}

// invoke calls the event body, converting any panic into a failing result.
func (e *Executor) invoke(ctx context.Context, ev events.Event, rec *store.Record, ec *events.Context) (res events.Result) {
	defer func() {
		if r := recover(); r != nil {
			res = events.Failure(events.KindInternal, "event %s panicked: %v", ev.Name(), r)
			res.Message = fmt.Sprintf("%s\n%s", res.Message, debug.Stack())
		}
	}()
	return ev.Execute(ctx, rec, ec)
}

// record applies an execution's bookkeeping to the job while the job lock is
// still held: inventory refresh, record save, and one audit log line.
func (e *Executor) record(name string, rec *store.Record, res events.Result) {
	if err := e.Store.RefreshInventory(rec); err == nil {
		_ = e.Store.Save(rec)
	}
	if res.OK {
		msg := res.Message
		if msg == "" {
			msg = "completed"
		}
		_ = e.Store.AppendLog(rec, name, msg)
		return
	}
	_ = e.Store.AppendLog(rec, name, fmt.Sprintf("failed (%s): %s", res.FirstKind(), res.Message))
}

func (e *Executor) emit(name string, rec *store.Record, res events.Result) {
	if res.OK {
		e.Sink.Notify(notify.KindEventCompleted, rec.Identity, map[string]any{
			"event":     name,
			"message":   res.Message,
			"artifacts": res.Artifacts,
		})
		return
	}
	e.Sink.Notify(notify.KindEventFailed, rec.Identity, map[string]any{
		"event":   name,
		"kind":    string(res.FirstKind()),
		"message": res.Message,
	})
}
