package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-pipeline/internal/identity"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := New(t.TempDir())
	require.NoError(t, err)
	return st
}

func testIdentity() identity.Identity {
	return identity.Identity{
		Company:  "Acme",
		Title:    "Engineer",
		PostedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
		JobID:    "job-0001",
	}
}

func TestNew_CreatesPhaseDirectories(t *testing.T) {
	root := t.TempDir()
	_, err := New(root)
	require.NoError(t, err)
	for _, p := range Phases {
		info, err := os.Stat(filepath.Join(root, p.Dir()))
		require.NoError(t, err, "phase directory %s", p)
		assert.True(t, info.IsDir())
	}
}

func TestCreate_NewRecord(t *testing.T) {
	st := testStore(t)
	rec, created, err := st.Create(testIdentity())
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, PhaseQueued, rec.Phase)
	assert.Equal(t, "job-0001", rec.Identity.JobID)

	// The record directory lives under the queued phase and holds job.json.
	assert.Contains(t, rec.Dir(), filepath.Join(st.Root(), "queued"))
	_, err = os.Stat(rec.Path(RecordFile))
	require.NoError(t, err)

	lines, err := st.ReadLog(rec)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "record created")
}

func TestCreate_Idempotent(t *testing.T) {
	st := testStore(t)
	first, created, err := st.Create(testIdentity())
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := st.Create(testIdentity())
	require.NoError(t, err)
	assert.False(t, created, "second create with same identity must report existing")
	assert.Equal(t, first.Folder(), second.Folder())
	assert.Equal(t, first.Identity.JobID, second.Identity.JobID)
}

func TestCreate_GeneratesJobID(t *testing.T) {
	st := testStore(t)
	id := testIdentity()
	id.JobID = ""
	rec, created, err := st.Create(id)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.Identity.JobID)

	// A second create with an empty ID is a different job.
	other, created, err := st.Create(id)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, rec.Identity.JobID, other.Identity.JobID)
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	rec.Subcontent["summary"] = SectionSpec{Mode: "static", Event: "subcontent-summary-static"}
	require.NoError(t, st.Save(rec))

	loaded, err := st.Load(rec.Folder())
	require.NoError(t, err)
	assert.Equal(t, rec.Identity, loaded.Identity)
	assert.Equal(t, PhaseQueued, loaded.Phase)
	assert.Equal(t, rec.Subcontent, loaded.Subcontent)
}

func TestLoad_NotFound(t *testing.T) {
	st := testStore(t)
	_, err := st.Load("no.such.20260101-000000.folder")
	var notFound *JobNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestFindByID_SearchesAllPhases(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	require.NoError(t, st.Relocate(rec, PhaseApplied))
	rec.Phase = PhaseApplied
	require.NoError(t, st.Save(rec))

	found, err := st.FindByID("job-0001")
	require.NoError(t, err)
	assert.Equal(t, PhaseApplied, found.Phase)

	_, err = st.FindByID("missing-id")
	var notFound *JobNotFoundError
	assert.True(t, errors.As(err, &notFound))
}

func TestFind_FolderThenID(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	byFolder, err := st.Find(rec.Folder())
	require.NoError(t, err)
	assert.Equal(t, rec.Identity.JobID, byFolder.Identity.JobID)

	byID, err := st.Find(rec.Identity.JobID)
	require.NoError(t, err)
	assert.Equal(t, rec.Folder(), byID.Folder())
}

func TestLoad_PhaseDirectoryWinsOnSkew(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	// Simulate a crash between rename and save: directory moved, record not
	// yet rewritten.
	require.NoError(t, st.Relocate(rec, PhaseApplied))

	loaded, err := st.Load(rec.Folder())
	require.NoError(t, err)
	assert.Equal(t, PhaseApplied, loaded.Phase, "phase directory is authoritative for location")
}

func TestLoad_RejectsMalformedRecord(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(rec.Path(RecordFile), []byte(`{"identity":{"company":"Acme"},"phase":"bogus"}`), 0o644))

	_, err = st.Load(rec.Folder())
	require.Error(t, err)
	var schemaErr *SchemaError
	assert.True(t, errors.As(err, &schemaErr), "expected SchemaError, got %v", err)
}

func TestWriteArtifact_TracksInventory(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	require.NoError(t, st.WriteArtifact(rec, "job.txt", []byte("posting text")))
	require.NoError(t, st.WriteArtifact(rec, "css/style.css", []byte("body{}")))

	assert.True(t, rec.HasFile("job.txt"))
	assert.True(t, rec.HasFile("css/style.css"), "nested artifact paths use forward slashes")
	assert.Equal(t, int64(len("posting text")), rec.Files["job.txt"].Size)
	assert.Len(t, rec.Files["job.txt"].SHA256, 64)

	// The inventory survives a reload.
	loaded, err := st.Load(rec.Folder())
	require.NoError(t, err)
	assert.True(t, loaded.HasFile("css/style.css"))
}

func TestInventory_ExcludesBookkeeping(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)
	require.NoError(t, st.WriteArtifact(rec, "job.txt", []byte("x")))
	require.NoError(t, st.AppendLog(rec, "test", "noise"))
	require.NoError(t, os.WriteFile(rec.Path("job.json.tmp"), []byte("{}"), 0o644))

	inv, err := Inventory(rec.Dir())
	require.NoError(t, err)
	assert.Contains(t, inv, "job.txt")
	assert.NotContains(t, inv, RecordFile)
	assert.NotContains(t, inv, LogFile)
	assert.NotContains(t, inv, "job.json.tmp")
}

func TestAppendLog_Format(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	require.NoError(t, st.AppendLog(rec, "phase", "queued -> applied"))

	lines, err := st.ReadLog(rec)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	last := lines[len(lines)-1]
	parts := strings.SplitN(last, " - ", 3)
	require.Len(t, parts, 3, "line format is {timestamp} - {context} - {message}")
	_, err = time.Parse("2006-01-02 15:04:05", parts[0])
	assert.NoError(t, err, "timestamp %q", parts[0])
	assert.Equal(t, "phase", parts[1])
	assert.Equal(t, "queued -> applied", parts[2])
}

func TestReadLog_Empty(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)
	require.NoError(t, os.Remove(rec.Path(LogFile)))

	lines, err := st.ReadLog(rec)
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestCorrectFolder(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)

	// In place already: nothing happens.
	renamed, err := st.CorrectFolder(rec)
	require.NoError(t, err)
	assert.False(t, renamed)

	// Drift the directory away from the identity.
	drifted := filepath.Join(filepath.Dir(rec.Dir()), "wrong_name.x.20200101-000000.job-0001")
	require.NoError(t, os.Rename(rec.Dir(), drifted))
	loaded, err := st.Load("wrong_name.x.20200101-000000.job-0001")
	require.NoError(t, err)

	renamed, err = st.CorrectFolder(loaded)
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.Equal(t, rec.Folder(), filepath.Base(loaded.Dir()), "record data is authoritative over the folder name")

	lines, err := st.ReadLog(loaded)
	require.NoError(t, err)
	assert.Contains(t, lines[len(lines)-1], "folder corrected")
}

func TestList_SortedByFolder(t *testing.T) {
	st := testStore(t)
	for _, company := range []string{"Zeta", "Acme", "Mango"} {
		id := testIdentity()
		id.Company = company
		id.JobID = "job-" + company
		_, _, err := st.Create(id)
		require.NoError(t, err)
	}

	records, err := st.List(PhaseQueued)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.True(t, records[0].Folder() < records[1].Folder())
	assert.True(t, records[1].Folder() < records[2].Folder())

	empty, err := st.List(PhaseApplied)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRelocate_MovesDirectory(t *testing.T) {
	st := testStore(t)
	rec, _, err := st.Create(testIdentity())
	require.NoError(t, err)
	require.NoError(t, st.WriteArtifact(rec, "job.txt", []byte("posting")))
	oldDir := rec.Dir()

	require.NoError(t, st.Relocate(rec, PhaseSkipped))

	_, err = os.Stat(oldDir)
	assert.True(t, os.IsNotExist(err), "old directory must be gone")
	data, err := os.ReadFile(rec.Path("job.txt"))
	require.NoError(t, err)
	assert.Equal(t, "posting", string(data))
}
