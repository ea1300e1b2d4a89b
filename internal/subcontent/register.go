package subcontent

import (
	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/store"
)

// Register adds both generation modes for all 8 sections to the registry.
func Register(reg *events.Registry, st *store.Store, factory ClientFactory) error {
	for _, section := range artifacts.Sections {
		if err := reg.Register(&StaticEvent{Section: section, Store: st}); err != nil {
			return err
		}
		if err := reg.Register(&LLMEvent{Section: section, Store: st, NewClient: factory}); err != nil {
			return err
		}
	}
	return nil
}
