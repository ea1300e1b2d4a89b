package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dataCommand = &cobra.Command{
	Use:   "data <job>",
	Short: "Generate all subcontent sections for one job",
	Long: `Runs the configured subcontent event for each of the eight sections, one
at a time and in declaration order. On success the job moves to the
data_generated phase; an exhausted event moves it to errored instead.`,
	Args: cobra.ExactArgs(1),
	RunE: runData,
}

func init() {
	rootCmd.AddCommand(dataCommand)
}

func runData(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	rec, err := a.find(args[0])
	if err != nil {
		return err
	}
	if err := a.runner.RunDataBatch(cmd.Context(), rec, a.eventContext()); err != nil {
		return err
	}
	fmt.Printf("Job %s: all sections generated, now %s\n", rec.Identity.JobID, rec.Phase)
	return nil
}
