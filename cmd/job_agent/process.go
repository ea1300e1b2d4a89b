package main

import (
	"github.com/spf13/cobra"
)

var processCommand = &cobra.Command{
	Use:   "process",
	Short: "Advance every queued job through data and docs generation",
	Long: `Processes jobs serially: queued jobs run the data batch followed by the
docs batch, and jobs already in data_generated run the docs batch. A job
that fails lands in errored and processing continues with the next.`,
	Args: cobra.NoArgs,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCommand)
}

func runProcess(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.runner.ProcessQueued(cmd.Context(), a.eventContext())
	if err != nil {
		return err
	}
	a.printer.PrintSummary(summary)
	return nil
}
