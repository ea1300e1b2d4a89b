package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-pipeline/internal/identity"
	"github.com/jonathan/job-pipeline/internal/intake"
)

var createCommand = &cobra.Command{
	Use:   "create",
	Short: "Create a job record in the queued phase",
	Long: `Creates one job record from explicit attributes or a posting URL.
When a URL is given, missing company/title and the posting text are scraped
from the page. Creating the same job twice returns the existing record.`,
	RunE: runCreate,
}

var (
	createCompany string
	createTitle   string
	createPosted  string
	createJobID   string
	createURL     string
	createText    string
	createMode    string
)

func init() {
	createCommand.Flags().StringVarP(&createCompany, "company", "c", "", "Company name")
	createCommand.Flags().StringVarP(&createTitle, "title", "t", "", "Job title")
	createCommand.Flags().StringVar(&createPosted, "posted", "", "Posting timestamp (YYYYMMDD-HHMMSS, default now)")
	createCommand.Flags().StringVar(&createJobID, "id", "", "External job ID (generated when omitted)")
	createCommand.Flags().StringVarP(&createURL, "url", "u", "", "Posting URL to scrape")
	createCommand.Flags().StringVar(&createText, "posting-file", "", "Path to a posting text file")
	createCommand.Flags().StringVar(&createMode, "mode", "static", "Generation mode for all sections: static or llm")

	rootCmd.AddCommand(createCommand)
}

func runCreate(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts := intake.Options{
		Company: createCompany,
		Title:   createTitle,
		JobID:   createJobID,
		URL:     createURL,
		Mode:    createMode,
	}
	if createPosted != "" {
		posted, err := time.ParseInLocation(identity.TimeLayout, createPosted, time.UTC)
		if err != nil {
			return fmt.Errorf("bad --posted value (want YYYYMMDD-HHMMSS): %w", err)
		}
		opts.PostedAt = posted
	}
	if createText != "" {
		data, err := os.ReadFile(createText)
		if err != nil {
			return fmt.Errorf("reading posting file: %w", err)
		}
		opts.PostingText = string(data)
	}

	rec, created, err := a.intake.Create(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("Created %s\n", rec.Folder())
	} else {
		fmt.Printf("Already exists: %s (phase %s)\n", rec.Folder(), rec.Phase)
	}
	return nil
}
