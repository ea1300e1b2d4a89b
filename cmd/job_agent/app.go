package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonathan/job-pipeline/internal/batch"
	"github.com/jonathan/job-pipeline/internal/config"
	"github.com/jonathan/job-pipeline/internal/docs"
	"github.com/jonathan/job-pipeline/internal/events"
	"github.com/jonathan/job-pipeline/internal/executor"
	"github.com/jonathan/job-pipeline/internal/intake"
	"github.com/jonathan/job-pipeline/internal/logging"
	"github.com/jonathan/job-pipeline/internal/notify"
	"github.com/jonathan/job-pipeline/internal/observability"
	"github.com/jonathan/job-pipeline/internal/phase"
	"github.com/jonathan/job-pipeline/internal/retry"
	"github.com/jonathan/job-pipeline/internal/store"
	"github.com/jonathan/job-pipeline/internal/subcontent"
	"github.com/jonathan/job-pipeline/internal/upload"
)

// Flags shared by every subcommand.
var (
	flagConfig   string
	flagRoot     string
	flagVerbose  bool
	flagTestMode bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config.json file (values can be overridden by other flags)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", "", "Record store root directory")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed debug information")
	rootCmd.PersistentFlags().BoolVar(&flagTestMode, "test-mode", false, "Externally-bound events produce local stubs instead of calling out")
}

// app holds the wired pipeline components for one CLI invocation.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	store   *store.Store
	reg     *events.Registry
	exec    *executor.Executor
	phases  *phase.Manager
	policy  *retry.Policy
	runner  *batch.Runner
	intake  *intake.Intake
	printer *observability.Printer

	webhook *notify.WebhookSink
}

// buildApp loads configuration (file, then env, then flags), wires every
// component, and registers the built-in events.
func buildApp() (*app, error) {
	var cfg config.Config
	if flagConfig != "" {
		loaded, err := config.LoadConfig(flagConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.FromEnv()
	if flagRoot != "" {
		cfg.Root = flagRoot
	}
	if flagVerbose {
		cfg.Verbose = true
	}
	if flagTestMode {
		cfg.TestMode = true
	}
	cfg = cfg.MergeWithDefaults(config.Config{})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := logging.NewLogger(cfg.Env)

	st, err := store.New(cfg.Root)
	if err != nil {
		return nil, err
	}

	var sink notify.Sink
	var webhook *notify.WebhookSink
	if cfg.WebhookURL != "" {
		webhook = notify.NewWebhookSink(cfg.WebhookURL, logger)
		sink = notify.Multi{notify.NewLogSink(logger), webhook}
	} else {
		sink = notify.NewLogSink(logger)
	}

	reg := events.NewRegistry()
	if err := registerEvents(reg, st); err != nil {
		return nil, fmt.Errorf("registering events: %w", err)
	}

	exec := executor.New(reg, st, sink)
	if cfg.TimeoutSecs > 0 {
		exec.Timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	phases := phase.NewManager(st, sink)
	policy := retry.NewPolicy(exec, phases, logger)
	if cfg.Attempts > 0 {
		policy.Attempts = cfg.Attempts
	}
	if cfg.RetryDelaySecs > 0 {
		policy.Delay = time.Duration(cfg.RetryDelaySecs) * time.Second
	}
	runner := batch.NewRunner(st, policy, phases, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   st,
		reg:     reg,
		exec:    exec,
		phases:  phases,
		policy:  policy,
		runner:  runner,
		intake:  intake.New(st),
		printer: observability.NewPrinter(os.Stdout),
		webhook: webhook,
	}, nil
}

func registerEvents(reg *events.Registry, st *store.Store) error {
	if err := subcontent.Register(reg, st, nil); err != nil {
		return err
	}
	if err := docs.Register(reg, st); err != nil {
		return err
	}
	return reg.Register(&upload.Event{})
}

// eventContext builds the per-invocation context events receive.
func (a *app) eventContext() *events.Context {
	return &events.Context{
		Root:      a.cfg.Root,
		ResumeRef: a.cfg.ResumeRef,
		APIKey:    a.cfg.APIKey,
		UploadURL: a.cfg.UploadURL,
		Verbose:   a.cfg.Verbose,
		TestMode:  a.cfg.TestMode,
		Scratch:   map[string]any{},
	}
}

// find resolves a job by folder name or job ID.
func (a *app) find(key string) (*store.Record, error) {
	return a.store.Find(key)
}

func (a *app) close() {
	if a.webhook != nil {
		a.webhook.Close()
	}
}
