// Package intake creates job records from explicit attributes or a scraped
// posting URL, validating them before they enter the queued phase.
package intake

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/identity"
	"github.com/jonathan/job-pipeline/internal/store"
	"github.com/jonathan/job-pipeline/internal/subcontent"
)

// Options configures one job creation.
type Options struct {
	Company  string
	Title    string
	PostedAt time.Time
	JobID    string
	// URL, when set, is scraped to fill missing Company/Title and the
	// posting text.
	URL string
	// PostingText is stored as job.txt when no URL is given.
	PostingText string
	// Mode selects the generation mode for all 8 sections ("static" or
	// "llm"); per-section overrides are edits to job.json.
	Mode string
}

// ValidationError reports intake options that cannot form a valid identity.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Intake validates and creates job records.
type Intake struct {
	Store    *store.Store
	Client   *http.Client
	validate *validator.Validate
}

// New returns an intake using the default HTTP client for scraping.
func New(st *store.Store) *Intake {
	return &Intake{
		Store:    st,
		Client:   &http.Client{Timeout: fetchTimeout},
		validate: validator.New(),
	}
}

// Create builds the identity (scraping the posting URL if needed), creates
// the record idempotently, and seeds job.txt and the subcontent spec. The
// boolean reports whether the record is new.
func (i *Intake) Create(ctx context.Context, opts Options) (*store.Record, bool, error) {
	posting := opts.PostingText
	if opts.URL != "" && (opts.Company == "" || opts.Title == "" || posting == "") {
		scraped, err := ScrapePosting(ctx, i.Client, opts.URL)
		if err != nil {
			return nil, false, fmt.Errorf("scraping posting: %w", err)
		}
		if opts.Company == "" {
			opts.Company = scraped.Company
		}
		if opts.Title == "" {
			opts.Title = scraped.Title
		}
		if posting == "" {
			posting = scraped.Text
		}
	}

	if opts.PostedAt.IsZero() {
		opts.PostedAt = time.Now().UTC()
	}
	id := identity.Identity{
		Company:  opts.Company,
		Title:    opts.Title,
		PostedAt: opts.PostedAt,
		JobID:    opts.JobID,
	}
	if err := i.checkIdentity(id); err != nil {
		return nil, false, err
	}

	mode := opts.Mode
	if mode == "" {
		mode = subcontent.ModeStatic
	}
	if mode != subcontent.ModeStatic && mode != subcontent.ModeLLM {
		return nil, false, &ValidationError{Field: "mode", Message: fmt.Sprintf("unknown generation mode %q", mode)}
	}

	rec, created, err := i.Store.Create(id)
	if err != nil {
		return nil, false, err
	}
	if !created {
		return rec, false, nil
	}

	rec.Subcontent = subcontent.DefaultSpec(mode)
	if posting != "" {
		if err := i.Store.WriteArtifact(rec, artifacts.JobText, []byte(posting)); err != nil {
			return nil, false, err
		}
	}
	if err := i.Store.Save(rec); err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// checkIdentity runs struct validation on everything except JobID, which the
// store generates when absent.
func (i *Intake) checkIdentity(id identity.Identity) error {
	if err := i.validate.Var(id.Company, "required"); err != nil {
		return &ValidationError{Field: "company", Message: "company is required (pass it explicitly or via a scrapeable URL)"}
	}
	if err := i.validate.Var(id.Title, "required"); err != nil {
		return &ValidationError{Field: "title", Message: "title is required (pass it explicitly or via a scrapeable URL)"}
	}
	return nil
}
