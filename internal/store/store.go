// Package store persists job records as one directory per job under a phase
// directory, with a JSON record file, a tracked file inventory, and an
// append-only audit log.
package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonathan/job-pipeline/internal/identity"
)

// idAttempts bounds how many generated IDs Create tries before giving up.
const idAttempts = 5

// JobNotFoundError reports a job key (folder name or job ID) with no record
// under any phase directory.
type JobNotFoundError struct {
	Key string
}

func (e *JobNotFoundError) Error() string {
	return fmt.Sprintf("no job record found for %q", e.Key)
}

// Store anchors all records under one root directory.
type Store struct {
	root string
}

// New creates (if needed) the root and all phase directories and returns a
// store anchored there.
func New(root string) (*Store, error) {
	for _, p := range Phases {
		if err := os.MkdirAll(filepath.Join(root, p.Dir()), 0o755); err != nil {
			return nil, fmt.Errorf("creating phase directory %s: %w", p, err)
		}
	}
	return &Store{root: root}, nil
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) phaseDir(p Phase) string {
	return filepath.Join(s.root, p.Dir())
}

// Create makes a new record in the queued phase, or returns the existing one.
// The boolean distinguishes "newly created" (true) from "already existed"
// (false); calling Create twice with the same identity is not an error.
//
// When id.JobID is empty a fresh ID is generated; the exclusive directory
// creation is the reservation step, so two concurrent creators cannot claim
// the same folder.
func (s *Store) Create(id identity.Identity) (*Record, bool, error) {
	if id.JobID != "" {
		if existing, err := s.FindByID(identity.SanitizeID(id.JobID)); err == nil {
			return existing, false, nil
		}
		return s.createAt(id)
	}

	for range idAttempts {
		id.JobID = identity.NewJobID()
		rec, created, err := s.createAt(id)
		if err == nil {
			return rec, created, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, false, err
		}
	}
	return nil, false, fmt.Errorf("could not reserve a unique job id after %d attempts", idAttempts)
}

func (s *Store) createAt(id identity.Identity) (*Record, bool, error) {
	id.JobID = identity.SanitizeID(id.JobID)
	dir := filepath.Join(s.phaseDir(PhaseQueued), identity.FolderName(id))
	if err := os.Mkdir(dir, 0o755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			rec, loadErr := s.loadAt(dir, PhaseQueued)
			if loadErr != nil {
				return nil, false, fmt.Errorf("record directory %s exists but is unreadable: %w", dir, loadErr)
			}
			return rec, false, nil
		}
		return nil, false, fmt.Errorf("creating record directory: %w", err)
	}

	rec := &Record{
		Identity:   id,
		Phase:      PhaseQueued,
		Subcontent: map[string]SectionSpec{},
		Files:      map[string]FileInfo{},
		dir:        dir,
	}
	if err := s.Save(rec); err != nil {
		return nil, false, err
	}
	if err := s.AppendLog(rec, "store", "record created"); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Load finds a record by its folder name, searching every phase directory.
func (s *Store) Load(folder string) (*Record, error) {
	for _, p := range Phases {
		dir := filepath.Join(s.phaseDir(p), folder)
		if _, err := os.Stat(filepath.Join(dir, RecordFile)); err == nil {
			return s.loadAt(dir, p)
		}
	}
	return nil, &JobNotFoundError{Key: folder}
}

// FindByID finds a record by job ID, searching every phase directory. JobID
// is unique across all phases combined, so the first match is the record.
func (s *Store) FindByID(jobID string) (*Record, error) {
	for _, p := range Phases {
		entries, err := os.ReadDir(s.phaseDir(p))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("reading phase directory %s: %w", p, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			parsed, err := identity.Parse(entry.Name())
			if err != nil || parsed.JobID != jobID {
				continue
			}
			return s.loadAt(filepath.Join(s.phaseDir(p), entry.Name()), p)
		}
	}
	return nil, &JobNotFoundError{Key: jobID}
}

// Find resolves key as a folder name first, then as a job ID.
func (s *Store) Find(key string) (*Record, error) {
	if rec, err := s.Load(key); err == nil {
		return rec, nil
	}
	return s.FindByID(key)
}

func (s *Store) loadAt(dir string, p Phase) (*Record, error) {
	data, err := os.ReadFile(filepath.Join(dir, RecordFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", RecordFile, err)
	}
	if err := validateRecordJSON(data); err != nil {
		return nil, fmt.Errorf("record %s: %w", dir, err)
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", RecordFile, err)
	}
	if rec.Phase != p {
		// The phase directory wins for location, the record data wins for
		// everything else; a crash between rename and save leaves this skew.
		rec.Phase = p
	}
	if rec.Files == nil {
		rec.Files = map[string]FileInfo{}
	}
	if rec.Subcontent == nil {
		rec.Subcontent = map[string]SectionSpec{}
	}
	rec.dir = dir
	return &rec, nil
}

// Save writes job.json atomically (temp file then rename).
func (s *Store) Save(rec *Record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding record: %w", err)
	}
	path := filepath.Join(rec.dir, RecordFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("committing record: %w", err)
	}
	return nil
}

// List returns all records in a phase, sorted by folder name.
func (s *Store) List(p Phase) ([]*Record, error) {
	entries, err := os.ReadDir(s.phaseDir(p))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading phase directory %s: %w", p, err)
	}
	var records []*Record
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.loadAt(filepath.Join(s.phaseDir(p), entry.Name()), p)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Folder() < records[j].Folder() })
	return records, nil
}

// WriteArtifact writes a file into the record's directory (creating
// subdirectories for names like css/style.css), updates the inventory entry,
// and saves the record.
func (s *Store) WriteArtifact(rec *Record, name string, data []byte) error {
	path := rec.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating artifact directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing artifact %s: %w", name, err)
	}
	info, err := fileInfo(path)
	if err != nil {
		return err
	}
	rec.Files[name] = info
	return s.Save(rec)
}

// RefreshInventory rescans the record directory and replaces the inventory.
func (s *Store) RefreshInventory(rec *Record) error {
	inv, err := Inventory(rec.dir)
	if err != nil {
		return err
	}
	rec.Files = inv
	return nil
}

// Inventory walks dir and returns metadata for every artifact file.
// job.json and log.txt are the store's own bookkeeping and are excluded.
func Inventory(dir string) (map[string]FileInfo, error) {
	inv := map[string]FileInfo{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if name == RecordFile || name == LogFile || strings.HasSuffix(name, ".tmp") {
			return nil
		}
		info, err := fileInfo(path)
		if err != nil {
			return err
		}
		inv[name] = info
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", dir, err)
	}
	return inv, nil
}

// CorrectFolder renames the record directory when it disagrees with the
// identity persisted in job.json. The record's own data is authoritative,
// not the folder name. Returns true when a rename happened.
func (s *Store) CorrectFolder(rec *Record) (bool, error) {
	want := rec.Folder()
	if filepath.Base(rec.dir) == want {
		return false, nil
	}
	target := filepath.Join(filepath.Dir(rec.dir), want)
	if _, err := os.Stat(target); err == nil {
		return false, fmt.Errorf("cannot correct folder: %s already exists", target)
	}
	if err := os.Rename(rec.dir, target); err != nil {
		return false, fmt.Errorf("renaming record directory: %w", err)
	}
	old := filepath.Base(rec.dir)
	rec.dir = target
	if err := s.AppendLog(rec, "store", fmt.Sprintf("folder corrected from %s to %s", old, want)); err != nil {
		return true, err
	}
	return true, nil
}

// Relocate moves the record directory into another phase directory and
// updates the record's in-memory location. It does not touch the phase field
// or the audit log; the phase transition manager owns those.
func (s *Store) Relocate(rec *Record, to Phase) error {
	target := filepath.Join(s.phaseDir(to), filepath.Base(rec.dir))
	if err := os.MkdirAll(s.phaseDir(to), 0o755); err != nil {
		return fmt.Errorf("creating phase directory %s: %w", to, err)
	}
	if err := os.Rename(rec.dir, target); err != nil {
		return fmt.Errorf("relocating record to %s: %w", to, err)
	}
	rec.dir = target
	return nil
}

func fileInfo(path string) (FileInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileInfo{}, fmt.Errorf("hashing %s: %w", path, err)
	}
	stat, err := f.Stat()
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return FileInfo{
		Size:    n,
		SHA256:  hex.EncodeToString(h.Sum(nil)),
		ModTime: stat.ModTime().UTC(),
	}, nil
}
