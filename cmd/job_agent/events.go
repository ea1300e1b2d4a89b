package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var eventsCommand = &cobra.Command{
	Use:   "events",
	Short: "List every registered event name",
	Args:  cobra.NoArgs,
	RunE:  runEvents,
}

func init() {
	rootCmd.AddCommand(eventsCommand)
}

func runEvents(_ *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	for _, name := range a.reg.Names() {
		fmt.Println(name)
	}
	return nil
}
