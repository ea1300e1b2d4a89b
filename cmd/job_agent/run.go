package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-pipeline/internal/events"
)

var runCommand = &cobra.Command{
	Use:   "run <event> <job>",
	Short: "Run one named event against one job",
	Long: `Resolves the event by name and runs it through the retry policy against
the job (folder name or job ID). An unknown event name is reported
immediately; a repeatedly failing event moves the job to the errored phase
with a diagnostic error.md.`,
	Args: cobra.ExactArgs(2),
	RunE: runEvent,
}

var runNoRetry bool

func init() {
	runCommand.Flags().BoolVar(&runNoRetry, "no-retry", false, "Run exactly once, without the retry/escalation policy")
	rootCmd.AddCommand(runCommand)
}

func runEvent(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	eventName, jobKey := args[0], args[1]
	rec, err := a.find(jobKey)
	if err != nil {
		return err
	}

	ec := a.eventContext()
	var res events.Result
	if runNoRetry {
		res = a.exec.Run(cmd.Context(), eventName, rec, ec)
	} else {
		res = a.policy.Do(cmd.Context(), eventName, rec, ec)
	}

	if res.OK {
		fmt.Printf("OK: %s\n", res.Message)
		for _, artifact := range res.Artifacts {
			fmt.Printf("  produced %s\n", artifact)
		}
		return nil
	}
	return fmt.Errorf("event %s failed (%s): %s", eventName, res.FirstKind(), res.Message)
}
