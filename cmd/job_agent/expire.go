package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var expireCommand = &cobra.Command{
	Use:   "expire",
	Short: "Archive queued jobs with stale postings",
	Long: `Moves queued jobs whose posting date is older than the configured age
(expire_days, default 45) into the expired phase.`,
	Args: cobra.NoArgs,
	RunE: runExpire,
}

func init() {
	rootCmd.AddCommand(expireCommand)
}

func runExpire(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	maxAge := time.Duration(a.cfg.ExpireDays) * 24 * time.Hour
	expired, err := a.runner.ExpireStale(cmd.Context(), maxAge)
	if err != nil {
		return err
	}
	fmt.Printf("Expired %d job(s)\n", expired)
	return nil
}
