// Package docs implements the document-generation events: HTML composition
// from the subcontent files and PDF rendering with a headless browser.
package docs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/jonathan/job-pipeline/internal/artifacts"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/store"
)

// Document kinds handled by the compose/render event pairs.
const (
	DocResume      = "resume"
	DocCoverletter = "coverletter"
)

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="css/style.css">
</head>
<body>
<header><h1>{{.Heading}}</h1></header>
{{range .Sections}}<section class="{{.Class}}">
{{if .ShowTitle}}<h2>{{.Title}}</h2>
{{end}}<pre>{{.Content}}</pre>
</section>
{{end}}</body>
</html>
`

// defaultStylesheet is written once per job as css/style.css; the record's
// copy is what the PDF render picks up, so per-job overrides survive.
const defaultStylesheet = `body { font-family: Georgia, serif; margin: 2.5rem auto; max-width: 48rem; color: #1a1a1a; }
header h1 { font-size: 1.5rem; border-bottom: 2px solid #1a1a1a; padding-bottom: 0.3rem; }
section h2 { font-size: 1.1rem; text-transform: uppercase; letter-spacing: 0.05em; margin-bottom: 0.2rem; }
section pre { font-family: inherit; white-space: pre-wrap; margin: 0 0 1rem; }
`

type pageSection struct {
	Class     string
	Title     string
	ShowTitle bool
	Content   string
}

type pageData struct {
	Title    string
	Heading  string
	Sections []pageSection
}

var compiledPage = template.Must(template.New("page").Parse(pageTemplate))

// ComposeEvent produces resume.html or coverletter.html from the subcontent
// files. It refuses to run when a declared upstream file is missing; it
// never produces one transitively.
type ComposeEvent struct {
	Doc   string
	Store *store.Store
}

func (e *ComposeEvent) Name() string {
	return fmt.Sprintf("generate-%s-html", e.Doc)
}

// SelfTest confirms the page template compiles and the doc kind is known.
func (e *ComposeEvent) SelfTest(ctx context.Context) error {
	if e.Doc != DocResume && e.Doc != DocCoverletter {
		return fmt.Errorf("unknown document kind %q", e.Doc)
	}
	_, err := template.New("probe").Parse(pageTemplate)
	return err
}

func (e *ComposeEvent) Execute(ctx context.Context, rec *store.Record, ec *events.Context) events.Result {
	target := artifacts.ResumeHTML
	if e.Doc == DocCoverletter {
		target = artifacts.CoverletterHTML
	}
	if err := artifacts.CheckDependencies(rec, target); err != nil {
		var missing *artifacts.MissingDependencyError
		if errors.As(err, &missing) {
			return events.Failure(events.KindDependencyNotMet, "%s", missing.Error())
		}
		return events.Failure(events.KindInternal, "dependency check: %v", err)
	}

	data := pageData{
		Title:   fmt.Sprintf("%s - %s", rec.Identity.Company, rec.Identity.Title),
		Heading: rec.Identity.Title,
	}
	var sections []string
	if e.Doc == DocCoverletter {
		sections = []string{"coverletter"}
	} else {
		for _, s := range artifacts.Sections {
			if s != "coverletter" {
				sections = append(sections, s)
			}
		}
	}
	for _, section := range sections {
		content, err := os.ReadFile(rec.Path(artifacts.SubcontentFile(section)))
		if err != nil {
			return events.Failure(events.KindFatalIO, "reading %s: %v", artifacts.SubcontentFile(section), err)
		}
		data.Sections = append(data.Sections, pageSection{
			Class:     section,
			Title:     strings.ToUpper(section[:1]) + section[1:],
			ShowTitle: section != "contacts" && section != "coverletter",
			Content:   strings.TrimSpace(string(content)),
		})
	}

	produced := []string{target}
	if !rec.HasFile(artifacts.StyleSheet) {
		if err := e.Store.WriteArtifact(rec, artifacts.StyleSheet, []byte(defaultStylesheet)); err != nil {
			return events.Failure(events.KindFatalIO, "writing stylesheet: %v", err)
		}
		produced = append(produced, artifacts.StyleSheet)
	}

	var buf bytes.Buffer
	if err := compiledPage.Execute(&buf, data); err != nil {
		return events.Failure(events.KindInternal, "composing %s: %v", target, err)
	}
	if err := e.Store.WriteArtifact(rec, target, buf.Bytes()); err != nil {
		return events.Failure(events.KindFatalIO, "writing %s: %v", target, err)
	}
	return events.Success(fmt.Sprintf("composed %s", target), produced...)
}
