package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCommand = &cobra.Command{
	Use:   "status <job>",
	Short: "Show one job's record, files, and recent audit log",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCommand)
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.find(args[0])
	if err != nil {
		return err
	}

	// A record whose folder name drifted from its identity fields gets
	// renamed on read; the record data is authoritative.
	renamed, err := a.store.CorrectFolder(rec)
	if err != nil {
		return err
	}
	if renamed {
		fmt.Printf("Folder corrected to %s\n", rec.Folder())
	}

	logLines, err := a.store.ReadLog(rec)
	if err != nil {
		return err
	}
	a.printer.PrintRecord(rec, logLines)
	return nil
}
