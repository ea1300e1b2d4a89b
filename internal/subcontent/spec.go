// Package subcontent implements the 8 required content sections of a job
// application package: the per-job generation spec and the static and
// llm-mode events that produce the section files.
package subcontent

import (
	"fmt"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/store"
)

// Generation modes for one section.
const (
	ModeStatic = "static"
	ModeLLM    = "llm"
)

// EventName returns the registered event name for a section in a mode,
// e.g. "subcontent-summary-llm".
func EventName(section, mode string) string {
	return fmt.Sprintf("subcontent-%s-%s", section, mode)
}

// DefaultSpec configures every section in the given mode. Exactly these 8
// sections must be configured before a job may leave the queued phase.
func DefaultSpec(mode string) map[string]store.SectionSpec {
	spec := make(map[string]store.SectionSpec, len(artifacts.Sections))
	for _, section := range artifacts.Sections {
		spec[section] = store.SectionSpec{Mode: mode, Event: EventName(section, mode)}
	}
	return spec
}

// referenceFile is the source file for a section inside the default-resume
// reference directory.
func referenceFile(section string) string {
	return section + ".md"
}
