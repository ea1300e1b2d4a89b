// Package artifacts names the well-known files a job record accumulates and
// declares the static dependency graph that gates document generation.
package artifacts

import (
	"fmt"
	"strings"

	"github.com/jonathan/job-pipeline/internal/store"
)

// Well-known artifact names inside a record directory.
const (
	JobText         = "job.txt"
	ResumeHTML      = "resume.html"
	ResumePDF       = "resume.pdf"
	CoverletterHTML = "coverletter.html"
	CoverletterPDF  = "coverletter.pdf"
	StyleSheet      = "css/style.css"
	ErrorReport     = "error.md"
)

// Sections are the 8 required subcontent sections. All 8 files must exist
// before a job may leave the queued phase via the data batch.
var Sections = []string{
	"contacts",
	"summary",
	"skills",
	"highlights",
	"experience",
	"education",
	"awards",
	"coverletter",
}

// SubcontentFile returns the artifact name for one section.
func SubcontentFile(section string) string {
	return "subcontent." + section + ".md"
}

// SubcontentFiles returns the artifact names of all 8 sections.
func SubcontentFiles() []string {
	out := make([]string, len(Sections))
	for i, s := range Sections {
		out[i] = SubcontentFile(s)
	}
	return out
}

// dependencies maps each gated artifact to the upstream artifacts that must
// exist before it may be produced. Production is never transitive: an event
// refuses when an upstream file is missing instead of generating it.
var dependencies = map[string][]string{
	ResumeHTML:      SubcontentFiles(),
	CoverletterHTML: {SubcontentFile("coverletter")},
	ResumePDF:       {ResumeHTML},
	CoverletterPDF:  {CoverletterHTML},
}

// Requirements returns the declared upstream artifacts for name, or nil when
// the artifact is ungated.
func Requirements(name string) []string {
	return dependencies[name]
}

// MissingDependencyError lists the upstream artifacts absent from a record.
type MissingDependencyError struct {
	Artifact string
	Missing  []string
}

func (e *MissingDependencyError) Error() string {
	return fmt.Sprintf("cannot produce %s: missing upstream artifacts: %s",
		e.Artifact, strings.Join(e.Missing, ", "))
}

// CheckDependencies verifies every declared upstream artifact of name is
// present in the record's inventory. A gated artifact must refuse to be
// produced, not merely warn, when this returns an error.
func CheckDependencies(rec *store.Record, name string) error {
	var missing []string
	for _, dep := range Requirements(name) {
		if !rec.HasFile(dep) {
			missing = append(missing, dep)
		}
	}
	if len(missing) > 0 {
		return &MissingDependencyError{Artifact: name, Missing: missing}
	}
	return nil
}
