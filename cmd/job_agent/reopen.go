package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var reopenCommand = &cobra.Command{
	Use:   "reopen <job>",
	Short: "Return an errored job to the phase it failed in",
	Long: `Moves a job out of errored back to the phase recorded at the time of
failure. The diagnostic error.md stays in the folder for reference.`,
	Args: cobra.ExactArgs(1),
	RunE: runReopen,
}

func init() {
	rootCmd.AddCommand(reopenCommand)
}

func runReopen(_ *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.find(args[0])
	if err != nil {
		return err
	}
	if err := a.phases.Reopen(rec); err != nil {
		return err
	}
	fmt.Printf("Job %s: reopened into %s\n", rec.Identity.JobID, rec.Phase)
	return nil
}
