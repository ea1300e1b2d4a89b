package docs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/store"
)

// renderTimeout bounds one headless-browser print. The executor's own
// wall-clock bound still applies above it.
const renderTimeout = 2 * time.Minute

// RenderPDFEvent prints resume.pdf or coverletter.pdf from the composed HTML
// using headless Chrome. Requires Chrome/Chromium on the system; in test
// mode it writes a deterministic placeholder instead.
type RenderPDFEvent struct {
	Doc   string
	Store *store.Store
}

func (e *RenderPDFEvent) Name() string {
	return fmt.Sprintf("generate-%s-pdf", e.Doc)
}

func (e *RenderPDFEvent) Execute(ctx context.Context, rec *store.Record, ec *events.Context) events.Result {
	source, target := artifacts.ResumeHTML, artifacts.ResumePDF
	if e.Doc == DocCoverletter {
		source, target = artifacts.CoverletterHTML, artifacts.CoverletterPDF
	}
	if err := artifacts.CheckDependencies(rec, target); err != nil {
		var missing *artifacts.MissingDependencyError
		if errors.As(err, &missing) {
			return events.Failure(events.KindDependencyNotMet, "%s", missing.Error())
		}
		return events.Failure(events.KindInternal, "dependency check: %v", err)
	}

	if ec.TestMode {
		stub := fmt.Sprintf("%%PDF-1.4\n%% placeholder print of %s\n", source)
		if err := e.Store.WriteArtifact(rec, target, []byte(stub)); err != nil {
			return events.Failure(events.KindFatalIO, "writing %s: %v", target, err)
		}
		return events.Success(fmt.Sprintf("rendered %s (test mode)", target), target)
	}

	pdf, err := printPDF(ctx, "file://"+rec.Path(source))
	if err != nil {
		return events.Failure(events.KindExternalService, "rendering %s: %v", target, err)
	}
	if err := e.Store.WriteArtifact(rec, target, pdf); err != nil {
		return events.Failure(events.KindFatalIO, "writing %s: %v", target, err)
	}
	return events.Success(fmt.Sprintf("rendered %s", target), target)
}

// printPDF loads url in a headless browser and returns the printed page.
func printPDF(ctx context.Context, url string) ([]byte, error) {
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, renderTimeout)
	defer cancel()

	var pdf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdf, _, err = page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("browser print failed: %w", err)
	}
	return pdf, nil
}
