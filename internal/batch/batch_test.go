package batch

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/docs"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/executor"
	"github.com/jonathan/job-pipeline/internal/identity"
	"github.com/jonathan/job-pipeline/internal/phase"
	"github.com/jonathan/job-pipeline/internal/retry"
	"github.com/jonathan/job-pipeline/internal/store"
	"github.com/jonathan/job-pipeline/internal/subcontent"
)

type fixture struct {
	store  *store.Store
	runner *Runner
	ec     *events.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(t.TempDir())
	require.NoError(t, err)

	refDir := t.TempDir()
	for _, section := range artifacts.Sections {
		path := filepath.Join(refDir, section+".md")
		require.NoError(t, os.WriteFile(path, []byte("reference "+section), 0o644))
	}

	reg := events.NewRegistry()
	require.NoError(t, subcontent.Register(reg, st, nil))
	require.NoError(t, docs.Register(reg, st))

	exec := executor.New(reg, st, nil)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	phases := phase.NewManager(st, nil)
	policy := retry.NewPolicy(exec, phases, logger)
	policy.Delay = time.Millisecond

	return &fixture{
		store:  st,
		runner: NewRunner(st, policy, phases, logger),
		ec:     &events.Context{ResumeRef: refDir, TestMode: true},
	}
}

func (f *fixture) createJob(t *testing.T, jobID string) *store.Record {
	t.Helper()
	rec, _, err := f.store.Create(identity.Identity{
		Company:  "Acme",
		Title:    "Engineer",
		PostedAt: time.Now().UTC(),
		JobID:    jobID,
	})
	require.NoError(t, err)
	rec.Subcontent = subcontent.DefaultSpec(subcontent.ModeStatic)
	require.NoError(t, f.store.WriteArtifact(rec, artifacts.JobText, []byte("posting text")))
	require.NoError(t, f.store.Save(rec))
	return rec
}

func TestRunDataBatch_GeneratesAllSectionsAndTransitions(t *testing.T) {
	f := newFixture(t)
	rec := f.createJob(t, "job-data")

	require.NoError(t, f.runner.RunDataBatch(context.Background(), rec, f.ec))

	assert.Equal(t, store.PhaseDataGenerated, rec.Phase)
	for _, name := range artifacts.SubcontentFiles() {
		assert.True(t, rec.HasFile(name), "file %s must exist", name)
	}

	// Exactly one phase audit entry for the whole batch.
	lines, err := f.store.ReadLog(rec)
	require.NoError(t, err)
	phaseLines := 0
	for _, line := range lines {
		if strings.Contains(line, "queued -> data_generated") {
			phaseLines++
		}
	}
	assert.Equal(t, 1, phaseLines)
}

func TestRunDataBatch_RequiresAllEightSections(t *testing.T) {
	f := newFixture(t)
	rec := f.createJob(t, "job-short")
	delete(rec.Subcontent, "awards")
	require.NoError(t, f.store.Save(rec))

	err := f.runner.RunDataBatch(context.Background(), rec, f.ec)
	require.Error(t, err)
	assert.Equal(t, store.PhaseQueued, rec.Phase)
}

func TestRunDataBatch_FailedSectionStopsBatch(t *testing.T) {
	f := newFixture(t)
	rec := f.createJob(t, "job-fail")
	// Point one section at an unregistered event so the batch stops there.
	rec.Subcontent["skills"] = store.SectionSpec{Mode: "static", Event: "subcontent-missing-static"}
	require.NoError(t, f.store.Save(rec))

	err := f.runner.RunDataBatch(context.Background(), rec, f.ec)
	require.Error(t, err)
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, "subcontent-missing-static", batchErr.Event)

	// Sections before the failure ran; the job stayed put.
	assert.True(t, rec.HasFile(artifacts.SubcontentFile("contacts")))
	assert.Equal(t, store.PhaseQueued, rec.Phase)
}

func TestRunDocsBatch_StrictOrderAndTransition(t *testing.T) {
	f := newFixture(t)
	rec := f.createJob(t, "job-docs")
	require.NoError(t, f.runner.RunDataBatch(context.Background(), rec, f.ec))

	require.NoError(t, f.runner.RunDocsBatch(context.Background(), rec, f.ec))

	assert.Equal(t, store.PhaseDocsGenerated, rec.Phase)
	for _, name := range []string{artifacts.ResumeHTML, artifacts.CoverletterHTML, artifacts.ResumePDF, artifacts.CoverletterPDF} {
		assert.True(t, rec.HasFile(name), "file %s must exist", name)
	}
}

func TestRunDocsBatch_RefusesWithoutSubcontent(t *testing.T) {
	f := newFixture(t)
	rec := f.createJob(t, "job-nodeps")

	err := f.runner.RunDocsBatch(context.Background(), rec, f.ec)
	require.Error(t, err)
	var batchErr *BatchError
	require.ErrorAs(t, err, &batchErr)
	assert.Equal(t, DocEvents[0], batchErr.Event, "the batch stops at the first gated event")
	assert.Equal(t, events.KindDependencyNotMet, batchErr.Result.FirstKind())
	assert.False(t, rec.HasFile(artifacts.ResumePDF))
}

func TestProcessQueued_OneFailureDoesNotHaltTheBatch(t *testing.T) {
	f := newFixture(t)
	good := f.createJob(t, "job-good")

	// The bad job has llm-mode sections but no posting text, so its first
	// section fails validation and the job escalates to errored.
	bad, _, err := f.store.Create(identity.Identity{
		Company: "Acme", Title: "Engineer", PostedAt: time.Now().UTC(), JobID: "job-bad",
	})
	require.NoError(t, err)
	bad.Subcontent = subcontent.DefaultSpec(subcontent.ModeLLM)
	require.NoError(t, f.store.Save(bad))

	summary, err := f.runner.ProcessQueued(context.Background(), f.ec)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Attempted)
	assert.Equal(t, 1, summary.Progressed)
	assert.Equal(t, 1, summary.Failed)

	goodNow, err := f.store.FindByID(good.Identity.JobID)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseDocsGenerated, goodNow.Phase)

	badNow, err := f.store.FindByID(bad.Identity.JobID)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseErrored, badNow.Phase)
	require.NotNil(t, badNow.LastError)
	assert.Equal(t, store.PhaseQueued, badNow.LastError.PhaseAtFailure)
}

func TestProcessQueued_FinishesDataGeneratedJobs(t *testing.T) {
	f := newFixture(t)
	rec := f.createJob(t, "job-resume")
	require.NoError(t, f.runner.RunDataBatch(context.Background(), rec, f.ec))
	require.Equal(t, store.PhaseDataGenerated, rec.Phase)

	summary, err := f.runner.ProcessQueued(context.Background(), f.ec)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Attempted)
	assert.Equal(t, 1, summary.Progressed)

	now, err := f.store.FindByID(rec.Identity.JobID)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseDocsGenerated, now.Phase)
}

func TestExpireStale(t *testing.T) {
	f := newFixture(t)
	stale := f.createJob(t, "job-stale")
	stale.Identity.PostedAt = time.Now().UTC().Add(-90 * 24 * time.Hour)
	require.NoError(t, f.store.Save(stale))
	fresh := f.createJob(t, "job-fresh")

	expired, err := f.runner.ExpireStale(context.Background(), 45*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	staleNow, err := f.store.FindByID(stale.Identity.JobID)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseExpired, staleNow.Phase)

	freshNow, err := f.store.FindByID(fresh.Identity.JobID)
	require.NoError(t, err)
	assert.Equal(t, store.PhaseQueued, freshNow.Phase)
}
