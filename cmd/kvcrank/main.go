package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/torosent/kvcrank/internal/config"
	"github.com/torosent/kvcrank/internal/kvclient"
	"github.com/torosent/kvcrank/internal/logging"
	"github.com/torosent/kvcrank/internal/metrics"
	"github.com/torosent/kvcrank/internal/output"
	"github.com/torosent/kvcrank/internal/preflight"
	"github.com/torosent/kvcrank/internal/runner"
	"github.com/torosent/kvcrank/internal/scenario"
	"github.com/torosent/kvcrank/internal/threshold"
	"github.com/torosent/kvcrank/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

var (
	errAborted    = errors.New("preflight check failed, run aborted")
	errAllFailed  = errors.New("every worker failed")
	errThresholds = errors.New("one or more thresholds failed")
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	log, err := logging.New(stderr, cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	for _, w := range cfg.Warnings() {
		log.Warn(w)
	}

	tp, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("tracing shutdown", zap.Error(err))
		}
	}()

	clientCfg, err := cfg.ClientConfig()
	if err != nil {
		return err
	}
	client := kvclient.NewClient(clientCfg)

	var gate preflight.Gate = preflight.Pass
	if !cfg.SkipPreflight {
		gate = &preflight.FeatureCheck{ExpiryWait: cfg.PreflightExpiryWait}
	}

	log.Info("starting run",
		zap.String("target", cfg.Redacted()),
		zap.Stringer("scenario", cfg.Scenario),
		zap.Int("clients", cfg.Clients),
		zap.Int("requests", cfg.Requests),
	)

	opts := runner.Options{
		Clients:  cfg.Clients,
		Requests: cfg.Requests,
		Kind:     cfg.Scenario,
		Env: scenario.Env{
			Connector: client,
			Settings:  cfg.ScenarioSettings(),
		},
		Gate:   gate,
		Logger: logging.NewFailureLogger(log),
		Tracer: tp.Tracer(),
	}

	var progress *output.ProgressReporter
	if cfg.Output == config.OutputText && !cfg.Quiet {
		progress = output.NewProgressReporter(cfg.Clients, progressInterval, stderr)
		opts.OnWorkerDone = progress.WorkerDone
	}

	startedAt := time.Now()
	if progress != nil {
		progress.Start()
	}
	result := runner.New(opts).Run(ctx)
	if progress != nil {
		progress.Stop()
	}

	report := buildReport(cfg, startedAt, result)
	if !result.Aborted && len(thresholds) > 0 {
		results := threshold.NewEvaluator(thresholds).Evaluate(threshold.Input{
			Summary:          report.Summary,
			FailedWorkers:    len(result.Failures),
			SucceededWorkers: result.Succeeded(),
		})
		report.Thresholds = output.ThresholdLines(results)
	}

	if err := output.Write(stdout, string(cfg.Output), report); err != nil {
		return err
	}

	return exitError(result, report)
}

func buildReport(cfg *config.Config, startedAt time.Time, result runner.Result) output.Report {
	report := output.Report{
		RunID:     output.NewRunID(startedAt),
		StartedAt: startedAt.UTC(),
		Scenario:  cfg.Scenario.String(),
		Target:    cfg.Addr(),
		Clients:   cfg.Clients,
		Requests:  cfg.Requests,
		Aborted:   result.Aborted,
		Summary:   metrics.Summarize(result.Stats, result.Duration),
		Workers: output.WorkerCounts{
			Spawned:   result.Spawned,
			Succeeded: result.Succeeded(),
			Failed:    len(result.Failures),
		},
	}
	if result.GateErr != nil {
		report.AbortReason = result.GateErr.Error()
	}
	for _, f := range result.Failures {
		report.Failures = append(report.Failures, output.WorkerError{Worker: f.WorkerID, Error: f.Err.Error()})
	}
	return report
}

func exitError(result runner.Result, report output.Report) error {
	switch {
	case result.Aborted:
		if result.GateErr != nil {
			return fmt.Errorf("%w: %v", errAborted, result.GateErr)
		}
		return errAborted
	case result.AllFailed():
		return fmt.Errorf("%w: %v", errAllFailed, result.Err())
	case !report.ThresholdsPassed():
		return errThresholds
	}
	return nil
}
