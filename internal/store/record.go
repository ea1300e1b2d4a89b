package store

import (
	"path/filepath"
	"time"

	"github.com/jonathan/job-pipeline/internal/identity"
)

// Well-known record files. Generated artifact names live in the artifacts
// package; these two are the record's own bookkeeping and are excluded from
// inventory checks because the store itself mutates them.
const (
	RecordFile = "job.json"
	LogFile    = "log.txt"
)

// FileInfo is the inventory metadata tracked per artifact.
type FileInfo struct {
	Size    int64     `json:"size"`
	SHA256  string    `json:"sha256"`
	ModTime time.Time `json:"mod_time"`
}

// SectionSpec configures how one subcontent section is generated: the mode
// ("static" or "llm") and the registered event name implementing it.
type SectionSpec struct {
	Mode  string `json:"mode"`
	Event string `json:"event"`
}

// ErrorRecord captures a terminal event failure. PhaseAtFailure is what
// Reopen restores the record to.
type ErrorRecord struct {
	Event          string    `json:"event"`
	JobID          string    `json:"job_id"`
	PhaseAtFailure Phase     `json:"phase_at_failure"`
	Message        string    `json:"message"`
	Attempts       int       `json:"attempts"`
	Timestamp      time.Time `json:"timestamp"`
}

// Record is the persistent unit tracked through phases: one per job
// application, physically a directory under <root>/<phase>/<folderName>.
// The phase transition manager is the only component that changes Phase, and
// the event executor is the only component that adds files and log entries
// during an execution.
type Record struct {
	Identity   identity.Identity      `json:"identity"`
	Phase      Phase                  `json:"phase"`
	Subcontent map[string]SectionSpec `json:"subcontent"`
	Files      map[string]FileInfo    `json:"files"`
	LastError  *ErrorRecord           `json:"last_error,omitempty"`

	dir string
}

// Dir returns the record's current directory.
func (r *Record) Dir() string { return r.dir }

// Folder returns the record's folder name, derived from its identity. The
// record's own data is authoritative; CorrectFolder reconciles a directory
// that disagrees.
func (r *Record) Folder() string { return identity.FolderName(r.Identity) }

// Path returns the absolute path of a file inside the record's directory.
func (r *Record) Path(name string) string {
	return filepath.Join(r.dir, filepath.FromSlash(name))
}

// HasFile reports whether name is present in the record's file inventory.
func (r *Record) HasFile(name string) bool {
	_, ok := r.Files[name]
	return ok
}
