// Command jobrun copies every file of a source directory into a target
// directory using a pool of workers.
//
// Usage:
//
//	jobrun [-c workers] [-config file] [-metrics-addr addr] source target
//
// Ctrl+C cancels the run; files already being copied are finished and the
// rest are reported as skipped.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/jzx17/gojobs/internal/config"
	"github.com/jzx17/gojobs/pkg/coordinator"
	"github.com/jzx17/gojobs/pkg/metrics"
	"github.com/jzx17/gojobs/pkg/report"
	"github.com/jzx17/gojobs/pkg/retry"
	"github.com/jzx17/gojobs/pkg/source"
	"github.com/jzx17/gojobs/pkg/types"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "jobrun:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := flag.NewFlagSet("jobrun", flag.ContinueOnError)
	configPath := flags.String("config", "", "YAML configuration file")
	workers := flags.Int("c", 0, "number of workers [default: from config, else one per CPU]")
	metricsAddr := flags.String("metrics-addr", "", "serve prometheus metrics on this address")
	logFormat := flags.String("log-format", "", "log format: text or json")
	quiet := flags.Bool("q", false, "do not print per-file progress; errors are still logged")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if flags.NArg() != 2 {
		flags.Usage()
		return errors.New("expected a source and a target directory")
	}
	src, dst := flags.Arg(0), flags.Arg(1)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "c" {
			cfg.Workers = *workers
		}
	})
	if *metricsAddr != "" {
		cfg.Metrics.Addr = *metricsAddr
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := cfg.NewLogger(os.Stderr)
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()

	progress := newReporter(*quiet, os.Stdout, logger)

	handler := types.Handler[source.FileJob](types.HandlerFunc[source.FileJob](copyFile))
	if cfg.Retry.MaxAttempts > 1 {
		handler = retry.Wrap(handler, retry.NewExecutor(cfg.RetryPolicy(), retry.WithReporter(progress)))
	}

	c, err := coordinator.New(coordinator.Config{
		Workers:       cfg.Workers,
		QueueCapacity: cfg.QueueCapacity,
		Reporter:      progress,
		Metrics:       metrics.NewPrometheusRecorder(reg),
		OnStateChange: func(from, to types.RunState) {
			logger.Debug("run state changed", "from", from, "to", to)
		},
	}, handler)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(context.WithoutCancel(ctx))
	serveCtx, stopServing := context.WithCancel(gctx)
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
			return metrics.NewServer(reg).ListenAndServe(serveCtx, cfg.Metrics.Addr)
		})
	}

	var summary types.Summary
	g.Go(func() error {
		defer stopServing()
		logger.Info("starting", "source", src, "target", dst, "workers", c.Workers())

		var runErr error
		summary, runErr = c.Run(ctx, source.Dir(src, dst))
		return runErr
	})

	err = g.Wait()
	fmt.Println()
	fmt.Println(summary.String())
	logger.Info("finished", "run_id", summary.RunID, "elapsed", summary.Elapsed,
		"succeeded", summary.Succeeded, "failed", summary.Failed, "skipped", summary.Skipped)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Todo)
	}
	return nil
}

// newReporter returns a terminal progress line, or for quiet runs a
// reporter that logs errors only
func newReporter(quiet bool, out io.Writer, logger *slog.Logger) types.Reporter {
	if quiet {
		return report.ErrorsOnly(report.NewLogReporter(logger.With("component", "coordinator")))
	}
	return report.NewTerminalReporter(out, 0)
}
