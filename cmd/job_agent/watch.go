package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var watchCommand = &cobra.Command{
	Use:   "watch",
	Short: "Run the pipeline on a schedule until interrupted",
	Long: `Starts a scheduler that periodically processes queued jobs and expires
queued jobs whose posting is older than the configured age. The schedule
comes from the watch_schedule config value in cron syntax (default
"@every 30m"). Stops cleanly on SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCommand)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	maxAge := time.Duration(a.cfg.ExpireDays) * 24 * time.Hour

	c := cron.New()
	_, err = c.AddFunc(a.cfg.WatchSchedule, func() {
		ctx := cmd.Context()

		summary, err := a.runner.ProcessQueued(ctx, a.eventContext())
		if err != nil {
			a.logger.Error("scheduled processing failed", "error", err)
		} else {
			a.printer.PrintSummary(summary)
		}

		expired, err := a.runner.ExpireStale(ctx, maxAge)
		if err != nil {
			a.logger.Error("expiring stale jobs failed", "error", err)
		} else if expired > 0 {
			a.logger.Info("expired stale jobs", "count", expired)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid watch schedule %q: %w", a.cfg.WatchSchedule, err)
	}

	c.Start()
	fmt.Printf("Watching on schedule %s (Ctrl+C to stop)\n", a.cfg.WatchSchedule)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	<-c.Stop().Done()
	return nil
}
