package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-alert-indexer/internal/adapter"
	"github.com/feral-file/ff-alert-indexer/internal/config"
	"github.com/feral-file/ff-alert-indexer/internal/logger"
	"github.com/feral-file/ff-alert-indexer/internal/processing"
	"github.com/feral-file/ff-alert-indexer/internal/processing/builtin"
	"github.com/feral-file/ff-alert-indexer/internal/service"
	"github.com/feral-file/ff-alert-indexer/internal/store"
)

// app holds the state shared by the commands of one invocation
type app struct {
	configFile string
	envPath    string
	output     string
	debug      bool

	cfg   *config.CLIConfig
	clock adapter.Clock
	store store.Store
	svc   *service.Service
}

// run executes alertctl with args and releases the store afterwards, also when a command failed
func run(args []string, stdout, stderr io.Writer) error {
	a := &app{clock: adapter.NewClock()}
	root := newRootCmd(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.Execute()
	if closeErr := a.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "alertctl",
		Short: "Alert indexer command line",
		Long: `alertctl inspects and maintains the alert store.

Ingest alerts, apply and save filters, run processors and query the
stored data from your terminal.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "Path to configuration file")
	root.PersistentFlags().StringVar(&a.envPath, "env", "config/", "Path to environment files")
	root.PersistentFlags().StringVarP(&a.output, "output", "o", formatTable, "Output format: table, json, yaml")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "Enable debug logging")

	root.AddCommand(
		newStatsCmd(a),
		newRunsCmd(a),
		newAlertCmd(a),
		newQueryCmd(a),
		newIngestCmd(a),
		newFilterCmd(a),
		newProcessorsCmd(a),
		newProcessCmd(a),
		newResultsCmd(a),
	)

	return root
}

func (a *app) init() error {
	switch a.output {
	case formatTable, formatJSON, formatYAML:
	default:
		return fmt.Errorf("unsupported output format %q", a.output)
	}

	cfg, err := config.LoadCLIConfig(a.configFile, a.envPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	a.cfg = cfg

	return logger.Initialize(logger.Config{
		Debug:     a.debug || cfg.Debug,
		SentryDSN: cfg.SentryDSN,
	})
}

// service opens the store on first use
func (a *app) service(ctx context.Context) (*service.Service, error) {
	if a.svc != nil {
		return a.svc, nil
	}

	db, err := store.Open(a.cfg.Database.OpenConfig(logger.NewGormLogger(a.debug, time.Second)))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	st := store.NewSQLStore(db)
	if err := st.Initialize(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}

	svc, err := service.New(st, service.Options{
		Clock:      a.clock,
		Processing: a.cfg.Processing.RunnerConfig(),
		Overrides:  a.cfg.Processing.Overrides(),
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	a.store = st
	a.svc = svc
	return svc, nil
}

// registry builds the processor registry without touching the store
func (a *app) registry() (*processing.Registry, error) {
	reg := processing.NewRegistry()
	if err := builtin.Register(reg, a.cfg.Processing.Overrides()); err != nil {
		return nil, err
	}
	return reg, nil
}

func (a *app) close() error {
	if a.cfg != nil {
		logger.Flush(time.Second)
	}
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store, a.svc = nil, nil
	return err
}
