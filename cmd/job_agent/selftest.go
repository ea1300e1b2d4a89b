package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jonathan/job-pipeline/internal/events"
)

var selftestCommand = &cobra.Command{
	Use:   "selftest",
	Short: "Verify the wiring of every registered event",
	Long: `Runs the self-test of every registered event that offers one: templates
parse, prompt definitions exist. Events without a self-test are listed
as skipped. No job data is touched.`,
	Args: cobra.NoArgs,
	RunE: runSelftest,
}

func init() {
	rootCmd.AddCommand(selftestCommand)
}

func runSelftest(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	discovered := a.reg.Discover()
	names := make([]string, 0, len(discovered))
	for name := range discovered {
		names = append(names, name)
	}
	sort.Strings(names)

	failed := 0
	for _, name := range names {
		tester, ok := discovered[name].(events.SelfTester)
		if !ok {
			fmt.Printf("  -    %s (no self-test)\n", name)
			continue
		}
		if err := tester.SelfTest(cmd.Context()); err != nil {
			failed++
			fmt.Printf("  FAIL %s: %v\n", name, err)
			continue
		}
		fmt.Printf("  ok   %s\n", name)
	}
	if failed > 0 {
		return fmt.Errorf("%d event(s) failed their self-test", failed)
	}
	return nil
}
