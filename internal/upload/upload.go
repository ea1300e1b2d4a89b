// Package upload implements the best-effort package upload event. The event
// is declared non-blocking: exhausting retries logs the failure and leaves
// the job in its current phase.
package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/store"
)

const uploadTimeout = 2 * time.Minute

// Event POSTs the rendered PDFs as a multipart form to the configured
// endpoint.
type Event struct {
	Client *http.Client
}

// Name implements events.Event.
func (e *Event) Name() string { return "upload-package" }

// NonBlocking marks the event best-effort: it never escalates to errored.
func (e *Event) NonBlocking() bool { return true }

func (e *Event) Execute(ctx context.Context, rec *store.Record, ec *events.Context) events.Result {
	if ec.UploadURL == "" {
		return events.Failure(events.KindValidation, "no upload URL configured")
	}
	files := []string{artifacts.ResumePDF, artifacts.CoverletterPDF}
	for _, name := range files {
		if !rec.HasFile(name) {
			return events.Failure(events.KindDependencyNotMet, "%s not generated yet", name)
		}
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("job_id", rec.Identity.JobID); err != nil {
		return events.Failure(events.KindInternal, "building form: %v", err)
	}
	for _, name := range files {
		part, err := form.CreateFormFile(filepath.Base(name), filepath.Base(name))
		if err != nil {
			return events.Failure(events.KindInternal, "building form: %v", err)
		}
		f, err := os.Open(rec.Path(name))
		if err != nil {
			return events.Failure(events.KindFatalIO, "opening %s: %v", name, err)
		}
		_, err = io.Copy(part, f)
		f.Close()
		if err != nil {
			return events.Failure(events.KindFatalIO, "reading %s: %v", name, err)
		}
	}
	if err := form.Close(); err != nil {
		return events.Failure(events.KindInternal, "building form: %v", err)
	}

	client := e.Client
	if client == nil {
		client = &http.Client{Timeout: uploadTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.UploadURL, &body)
	if err != nil {
		return events.Failure(events.KindInternal, "building request: %v", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return events.Failure(events.KindExternalService, "uploading package: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return events.Failure(events.KindExternalService, "upload rejected with status %d", resp.StatusCode)
	}
	return events.Success(fmt.Sprintf("uploaded %d files", len(files)))
}
