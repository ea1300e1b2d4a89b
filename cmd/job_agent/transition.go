package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-pipeline/internal/store"
)

var transitionCommand = &cobra.Command{
	Use:   "transition <job> <phase>",
	Short: "Move a job to another lifecycle phase",
	Long: `Validates and applies one phase transition: the job's folder moves to the
target phase directory with every file preserved, and the change is
appended to the job's audit log. Transitions into data_generated and
docs_generated require the corresponding artifacts to exist.`,
	Args: cobra.ExactArgs(2),
	RunE: runTransition,
}

func init() {
	rootCmd.AddCommand(transitionCommand)
}

func runTransition(_ *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.find(args[0])
	if err != nil {
		return err
	}
	target, err := store.ParsePhase(args[1])
	if err != nil {
		return err
	}
	if err := a.phases.Transition(rec, target); err != nil {
		return err
	}
	fmt.Printf("Job %s: now %s\n", rec.Identity.JobID, rec.Phase)
	return nil
}
