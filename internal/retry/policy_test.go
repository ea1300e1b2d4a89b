package retry

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/executor"
	"github.com/jonathan/job-pipeline/internal/identity"
	"github.com/jonathan/job-pipeline/internal/phase"
	"github.com/jonathan/job-pipeline/internal/store"
)

type nonBlockingEvent struct {
	name  string
	calls *atomic.Int32
}

func (e *nonBlockingEvent) Name() string      { return e.name }
func (e *nonBlockingEvent) NonBlocking() bool { return true }
func (e *nonBlockingEvent) Execute(context.Context, *store.Record, *events.Context) events.Result {
	e.calls.Add(1)
	return events.Failure(events.KindExternalService, "endpoint unreachable")
}

func testPolicy(t *testing.T) (*store.Store, *store.Record, *events.Registry, *Policy) {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)
	rec, _, err := st.Create(identity.Identity{
		Company:  "Acme",
		Title:    "Engineer",
		PostedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		JobID:    "job-retry",
	})
	require.NoError(t, err)

	reg := events.NewRegistry()
	exec := executor.New(reg, st, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	policy := NewPolicy(exec, phase.NewManager(st, nil), logger)
	policy.Delay = time.Millisecond
	return st, rec, reg, policy
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("ok", func(context.Context, *store.Record, *events.Context) events.Result {
		calls.Add(1)
		return events.Success("done")
	})))

	res := policy.Do(context.Background(), "ok", rec, &events.Context{})
	assert.True(t, res.OK)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, store.PhaseQueued, rec.Phase)
}

func TestDo_RetriesThenSucceeds(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("flaky", func(context.Context, *store.Record, *events.Context) events.Result {
		if calls.Add(1) < 3 {
			return events.Failure(events.KindExternalService, "transient")
		}
		return events.Success("recovered")
	})))

	res := policy.Do(context.Background(), "flaky", rec, &events.Context{})
	assert.True(t, res.OK)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, store.PhaseQueued, rec.Phase, "a recovered job never visits errored")
}

func TestDo_ExhaustionEscalatesToErrored(t *testing.T) {
	st, rec, reg, policy := testPolicy(t)
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("doomed", func(context.Context, *store.Record, *events.Context) events.Result {
		calls.Add(1)
		return events.Failure(events.KindExternalService, "provider gone")
	})))

	res := policy.Do(context.Background(), "doomed", rec, &events.Context{})
	require.False(t, res.OK)
	assert.Equal(t, int32(DefaultAttempts), calls.Load(), "exactly the attempt bound, no more")

	assert.Equal(t, store.PhaseErrored, rec.Phase)
	require.NotNil(t, rec.LastError)
	assert.Equal(t, "doomed", rec.LastError.Event)
	assert.Equal(t, store.PhaseQueued, rec.LastError.PhaseAtFailure)
	assert.Equal(t, DefaultAttempts, rec.LastError.Attempts)

	// The diagnostic artifact moved to errored with the record.
	report, err := os.ReadFile(rec.Path(artifacts.ErrorReport))
	require.NoError(t, err)
	assert.Contains(t, string(report), "doomed")
	assert.Contains(t, string(report), "provider gone")
	assert.Contains(t, string(report), "Recommended action")

	lines, err := st.ReadLog(rec)
	require.NoError(t, err)
	assert.Contains(t, lines[len(lines)-1], "queued -> errored")
}

func TestDo_ValidationFailsFast(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("malformed", func(context.Context, *store.Record, *events.Context) events.Result {
		calls.Add(1)
		return events.Failure(events.KindValidation, "record is missing its posting")
	})))

	res := policy.Do(context.Background(), "malformed", rec, &events.Context{})
	require.False(t, res.OK)
	assert.Equal(t, int32(1), calls.Load(), "validation failures are never re-attempted")
	assert.Equal(t, store.PhaseErrored, rec.Phase, "fail-fast still escalates")
	assert.Equal(t, 1, rec.LastError.Attempts)
}

func TestDo_DependencyNotMetFailsFast(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("gated", func(context.Context, *store.Record, *events.Context) events.Result {
		calls.Add(1)
		return events.Failure(events.KindDependencyNotMet, "resume.html missing")
	})))

	policy.Do(context.Background(), "gated", rec, &events.Context{})
	assert.Equal(t, int32(1), calls.Load())
}

func TestDo_UnknownEventBypassesRetryAndEscalation(t *testing.T) {
	_, rec, _, policy := testPolicy(t)

	res := policy.Do(context.Background(), "no-such-event", rec, &events.Context{})
	require.False(t, res.OK)
	assert.Equal(t, events.KindNotFound, res.FirstKind())
	assert.Equal(t, store.PhaseQueued, rec.Phase, "unknown events never move the job")
	assert.Nil(t, rec.LastError)
}

func TestDo_NonBlockingExhaustionLeavesPhaseUnchanged(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	var calls atomic.Int32
	require.NoError(t, reg.Register(&nonBlockingEvent{name: "best-effort", calls: &calls}))

	res := policy.Do(context.Background(), "best-effort", rec, &events.Context{})
	require.False(t, res.OK)
	assert.Equal(t, int32(DefaultAttempts), calls.Load(), "non-blocking events still retry")
	assert.Equal(t, store.PhaseQueued, rec.Phase, "a non-blocking failure never escalates to errored")
	assert.Nil(t, rec.LastError)
	assert.False(t, rec.HasFile(artifacts.ErrorReport))
}

func TestDo_ConfigurableAttempts(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	policy.Attempts = 5
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("doomed", func(context.Context, *store.Record, *events.Context) events.Result {
		calls.Add(1)
		return events.Failure(events.KindFatalIO, "disk full")
	})))

	policy.Do(context.Background(), "doomed", rec, &events.Context{})
	assert.Equal(t, int32(5), calls.Load())
	assert.Equal(t, 5, rec.LastError.Attempts)
}

func TestDo_CanceledContextStopsRetrying(t *testing.T) {
	_, rec, reg, policy := testPolicy(t)
	policy.Delay = 50 * time.Millisecond
	var calls atomic.Int32
	require.NoError(t, reg.Register(events.Func("doomed", func(context.Context, *store.Record, *events.Context) events.Result {
		calls.Add(1)
		return events.Failure(events.KindExternalService, "down")
	})))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	res := policy.Do(ctx, "doomed", rec, &events.Context{})
	require.False(t, res.OK)
	assert.Less(t, calls.Load(), int32(DefaultAttempts))
}
