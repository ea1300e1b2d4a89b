package docs

import (
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/store"
)

// Register adds the four document events to the registry in no particular
// order; execution order is the batch runner's concern.
func Register(reg *events.Registry, st *store.Store) error {
	for _, doc := range []string{DocResume, DocCoverletter} {
		if err := reg.Register(&ComposeEvent{Doc: doc, Store: st}); err != nil {
			return err
		}
		if err := reg.Register(&RenderPDFEvent{Doc: doc, Store: st}); err != nil {
			return err
		}
	}
	return nil
}
