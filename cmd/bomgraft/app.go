package main

import (
	"context"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bomgraft/internal/blob"
	"bomgraft/internal/config"
	"bomgraft/internal/core"
	"bomgraft/internal/logging"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	metricsOut string

	stdout io.Writer
	stderr io.Writer

	cfg      config.Config
	logger   *zap.Logger
	registry *prometheus.Registry
	metrics  core.MetricsRecorder
	svc      *core.Service
	closers  []func() error
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "bomgraft",
		Short:         "Reconcile engineering BOM exports with the last released snapshot",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "bomgraft.yaml", "path to the YAML configuration file")
	root.PersistentFlags().StringVar(&a.metricsOut, "metrics-out", "", "write prometheus metrics in text format to this file on exit")
	root.AddCommand(
		newValidateCmd(a),
		newMergeCmd(a),
		newVerifyCmd(a),
		newFlattenCmd(a),
		newCompareCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// load reads configuration and builds the logger and metrics recorder.
func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.Must(cfg.Log)
	a.registry = prometheus.NewRegistry()
	a.metrics = core.NewMetricsRecorder(cfg.Metrics, a.registry)
	return nil
}

// service returns the pipeline service. Storage backends are only opened
// when withStorage is set, so purely local commands never touch the ledger.
func (a *app) service(ctx context.Context, withStorage bool) (*core.Service, error) {
	if a.svc != nil && (!withStorage || a.svc.Ledger() != nil) {
		return a.svc, nil
	}
	var (
		ledger core.Ledger
		blobs  blob.Store
	)
	if withStorage {
		var err error
		ledger, err = core.OpenLedger(a.cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		a.closers = append(a.closers, ledger.Close)
		blobs, err = blob.Open(ctx, a.cfg.Blob)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
	}
	a.svc = core.NewService(ledger, blobs,
		core.WithLogger(a.logger),
		core.WithMetricsRecorder(a.metrics),
		core.WithUnitMultiplier(a.cfg.Merge.UnitMultiplier),
	)
	return a.svc, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && a.logger != nil {
			a.logger.Warn("close", zap.Error(err))
		}
	}
	if rec, ok := a.metrics.(*core.ExpvarMetricsRecorder); ok && a.logger != nil {
		a.logger.Info("operation metrics", zap.Any("metrics", rec.Snapshot()))
	}
	if a.metricsOut != "" && a.registry != nil {
		if err := prometheus.WriteToTextfile(a.metricsOut, a.registry); err != nil && a.logger != nil {
			a.logger.Warn("write metrics", zap.String("path", a.metricsOut), zap.Error(err))
		}
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
