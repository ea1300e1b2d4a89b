package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/job-pipeline/internal/store"
)

var listCommand = &cobra.Command{
	Use:   "list [phase]",
	Short: "List jobs, optionally limited to one phase",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCommand)
}

func runList(_ *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	phases := store.Phases
	if len(args) == 1 {
		p, err := store.ParsePhase(args[0])
		if err != nil {
			return err
		}
		phases = []store.Phase{p}
	}

	for _, p := range phases {
		records, err := a.store.List(p)
		if err != nil {
			return err
		}
		if len(records) == 0 && len(args) == 0 {
			continue
		}
		a.printer.PrintList(p, records)
	}
	return nil
}
