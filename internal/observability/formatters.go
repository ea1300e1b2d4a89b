// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jonathan/job-pipeline/internal/batch"
	"github.com/jonathan/job-pipeline/internal/store"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxLogLines is the number of recent audit lines shown by status
	maxLogLines = 8
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}
	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRecord outputs a human-readable summary of one job record, including
// its tail of audit log lines.
func (p *Printer) PrintRecord(rec *store.Record, logLines []string) {
	if rec == nil {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Company:  %s\n", rec.Identity.Company))
	sb.WriteString(fmt.Sprintf("Title:    %s\n", rec.Identity.Title))
	sb.WriteString(fmt.Sprintf("Job ID:   %s\n", rec.Identity.JobID))
	sb.WriteString(fmt.Sprintf("Phase:    %s\n", rec.Phase))
	sb.WriteString(fmt.Sprintf("Folder:   %s\n", rec.Folder()))

	if len(rec.Files) > 0 {
		names := make([]string, 0, len(rec.Files))
		for name := range rec.Files {
			names = append(names, name)
		}
		sort.Strings(names)
		sb.WriteString(fmt.Sprintf("\nFiles (%d):\n", len(names)))
		for _, name := range names {
			sb.WriteString(fmt.Sprintf("  • %s (%d bytes)\n", name, rec.Files[name].Size))
		}
	}

	if rec.LastError != nil {
		sb.WriteString(fmt.Sprintf("\nLast error: %s during %s (%d attempts)\n",
			rec.LastError.Message, rec.LastError.Event, rec.LastError.Attempts))
	}

	if len(logLines) > 0 {
		start := 0
		if len(logLines) > maxLogLines {
			start = len(logLines) - maxLogLines
		}
		sb.WriteString("\nRecent log:\n")
		for _, line := range logLines[start:] {
			sb.WriteString(fmt.Sprintf("  %s\n", line))
		}
	}

	p.printBox("Job "+rec.Identity.JobID, strings.TrimRight(sb.String(), "\n"))
}

// PrintList outputs one line per record.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintList(phase store.Phase, records []*store.Record) {
	fmt.Fprintf(p.out, "%s (%d):\n", phase, len(records))
	for _, rec := range records {
		fmt.Fprintf(p.out, "  %-40s %s at %s\n", rec.Folder(), rec.Identity.Title, rec.Identity.Company)
	}
}

// PrintSummary outputs the result of one batch-of-jobs pass.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintSummary(s batch.Summary) {
	fmt.Fprintf(p.out, "Processed %d job(s): %d progressed, %d errored\n",
		s.Attempted, s.Progressed, s.Failed)
}
