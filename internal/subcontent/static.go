package subcontent

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/store"
)

// StaticEvent produces one section by copying it verbatim from the selected
// default-resume reference directory.
type StaticEvent struct {
	Section string
	Store   *store.Store
}

func (e *StaticEvent) Name() string {
	return EventName(e.Section, ModeStatic)
}

func (e *StaticEvent) Execute(ctx context.Context, rec *store.Record, ec *events.Context) events.Result {
	if ec.ResumeRef == "" {
		return events.Failure(events.KindValidation, "no default-resume reference directory configured")
	}
	source := filepath.Join(ec.ResumeRef, referenceFile(e.Section))
	data, err := os.ReadFile(source)
	if err != nil {
		if os.IsNotExist(err) {
			return events.Failure(events.KindValidation,
				"reference file %s missing for section %s", source, e.Section)
		}
		return events.Failure(events.KindFatalIO, "reading reference %s: %v", source, err)
	}

	target := artifacts.SubcontentFile(e.Section)
	if err := e.Store.WriteArtifact(rec, target, data); err != nil {
		return events.Failure(events.KindFatalIO, "writing %s: %v", target, err)
	}
	return events.Success(fmt.Sprintf("copied %s from reference", e.Section), target)
}
