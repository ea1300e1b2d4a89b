package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var docsCommand = &cobra.Command{
	Use:   "docs <job>",
	Short: "Compose HTML documents and render PDFs for one job",
	Long: `Runs the document events in their fixed order: resume HTML, cover letter
HTML, resume PDF, cover letter PDF. Each event checks its upstream
artifacts and refuses when one is missing. On success the job moves to
the docs_generated phase.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocs,
}

func init() {
	rootCmd.AddCommand(docsCommand)
}

func runDocs(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.find(args[0])
	if err != nil {
		return err
	}
	if err := a.runner.RunDocsBatch(cmd.Context(), rec, a.eventContext()); err != nil {
		return err
	}
	fmt.Printf("Job %s: documents generated, now %s\n", rec.Identity.JobID, rec.Phase)
	return nil
}
