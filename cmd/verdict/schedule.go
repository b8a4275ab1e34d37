package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"mercator-hq/verdict/pkg/cli"
	"mercator-hq/verdict/pkg/dataset"
	"mercator-hq/verdict/pkg/knowledge"
	"mercator-hq/verdict/pkg/knowledge/retention"
	"mercator-hq/verdict/pkg/pipeline"
	"mercator-hq/verdict/pkg/policy/source"
	"mercator-hq/verdict/pkg/report/export"
	"mercator-hq/verdict/pkg/telemetry/health"
	"mercator-hq/verdict/pkg/telemetry/tracing"
)

var scheduleFlags struct {
	once   bool
	runNow bool
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run classification on a cron schedule",
	Long: `Run the classification pipeline on a cron schedule until interrupted.

Every run reads schedule.input_path and writes the report to
schedule.output_path. While running, the daemon:
  - reloads rules when the policy file or repository changes (policy.watch)
    and on SIGHUP; invalid edits keep the previous rules
  - prunes stale knowledge base entries on knowledge_base.retention.schedule
  - serves /metrics, /healthz, /readyz and /version on schedule.metrics_address

SIGINT or SIGTERM stops the daemon after the current run finishes.

Examples:
  # Start the daemon
  verdict schedule --config verdict.yaml

  # Run once immediately, then keep the schedule
  verdict schedule --run-now

  # Single run without starting the daemon (useful from external schedulers)
  verdict schedule --once`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleFlags.once, "once", false, "run a single classification and exit")
	scheduleCmd.Flags().BoolVar(&scheduleFlags.runNow, "run-now", false, "run once at startup before waiting for the schedule")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	env, err := newEnvironment()
	if err != nil {
		return err
	}
	defer env.Close()

	if env.cfg.Schedule.InputPath == "" {
		return cli.NewConfigError("schedule.input_path", "an input path is required")
	}
	if env.cfg.Schedule.Cron == "" && !scheduleFlags.once {
		return cli.NewConfigError("schedule.cron", "a cron expression is required (or use --once)")
	}

	ctx, stop := cli.SetupSignalHandler()
	defer stop()

	d, err := newDaemon(ctx, env)
	if err != nil {
		return err
	}
	defer d.Close()

	if scheduleFlags.once {
		if err := d.runOnce(ctx); err != nil {
			return cli.NewCommandError("schedule", err)
		}
		return nil
	}

	if err := d.serve(ctx, scheduleFlags.runNow); err != nil {
		return cli.NewCommandError("schedule", err)
	}
	return nil
}

// daemon runs scheduled classification.
type daemon struct {
	env      *environment
	holder   *source.Holder
	kb       *knowledgeBase
	pipeline *pipeline.Pipeline
	exporter export.Exporter
	mode     knowledge.Mode
	checker  *health.Checker

	mu        sync.Mutex
	lastRun   time.Time
	lastErr   error
	reloadErr error
}

func newDaemon(ctx context.Context, env *environment) (*daemon, error) {
	cfg := env.cfg

	mode, err := knowledge.ParseMode(cfg.Pipeline.Mode)
	if err != nil {
		return nil, cli.NewConfigError("pipeline.mode", err.Error())
	}
	exporter, err := export.New(cfg.Pipeline.OutputFormat, cfg.Pipeline.Pretty)
	if err != nil {
		return nil, cli.NewConfigError("pipeline.output_format", err.Error())
	}

	holder, err := env.loadRules(ctx, "")
	if err != nil {
		return nil, err
	}

	kb, err := env.openKnowledgeBase(ctx)
	if err != nil {
		return nil, err
	}

	p, err := pipeline.New(holder, kb,
		pipeline.WithLogger(env.logger),
		pipeline.WithTracer(env.tracer.Provider().Tracer(tracing.InstrumentationName)),
		pipeline.WithObserver(pipeline.NewLoggingObserver(env.logger)),
		pipeline.WithObserver(pipeline.NewMetricsObserver(env.metrics)),
	)
	if err != nil {
		kb.Close()
		return nil, err
	}

	d := &daemon{
		env:      env,
		holder:   holder,
		kb:       kb,
		pipeline: p,
		exporter: exporter,
		mode:     mode,
		checker:  health.New(2 * time.Second),
	}

	env.metrics.RecordPolicyReload(holder.Engine().Len(), nil)
	holder.OnReload = d.policyReloaded

	d.checker.Register("policy", func(context.Context) error {
		d.mu.Lock()
		defer d.mu.Unlock()
		if d.reloadErr != nil {
			return fmt.Errorf("last reload failed, serving revision %s: %w", d.holder.Snapshot().Revision, d.reloadErr)
		}
		return nil
	})
	d.checker.Register("knowledge_base", func(ctx context.Context) error {
		_, err := kb.store.Stats(ctx)
		return err
	})
	d.checker.Register("last_run", func(context.Context) error {
		d.mu.Lock()
		defer d.mu.Unlock()
		return d.lastErr
	})

	return d, nil
}

func (d *daemon) Close() error {
	return d.kb.Close()
}

func (d *daemon) policyReloaded(snap *source.Snapshot, err error) {
	rules := 0
	if snap != nil {
		rules = snap.Engine.Len()
	}
	d.env.metrics.RecordPolicyReload(rules, err)

	d.mu.Lock()
	d.reloadErr = err
	d.mu.Unlock()
}

// runOnce classifies the input file and writes the report.
func (d *daemon) runOnce(ctx context.Context) error {
	cfg := d.env.cfg.Schedule
	err := d.classify(ctx, cfg.InputPath, cfg.OutputPath)

	d.mu.Lock()
	d.lastRun = time.Now()
	d.lastErr = err
	d.mu.Unlock()

	if err != nil {
		d.env.logger.ErrorContext(ctx, "Scheduled run failed", "input", cfg.InputPath, "error", err)
	}
	return err
}

func (d *daemon) classify(ctx context.Context, input, output string) error {
	records, err := dataset.ReadFile(input)
	if err != nil {
		return err
	}

	res, err := d.pipeline.Run(ctx, records, d.mode)
	if err != nil {
		return err
	}

	if output != "" {
		if err := writeReport(d.exporter, &res.Report, output); err != nil {
			return err
		}
	}

	if stats, err := d.kb.store.Stats(ctx); err == nil {
		d.env.metrics.SetCacheEntries(knowledge.CacheName, stats.Entries)
	}

	d.env.logger.InfoContext(ctx, "Scheduled run completed",
		"run_id", res.RunID,
		"records", res.Report.Summary.Total,
		"compliance_rate", res.Report.Summary.ComplianceRate,
		"output", output,
	)
	return nil
}

// handler serves metrics and health probes.
func (d *daemon) handler() http.Handler {
	mux := http.NewServeMux()
	if d.env.cfg.Telemetry.Metrics.Enabled {
		mux.Handle(d.env.cfg.Telemetry.Metrics.Path, d.env.metrics.Handler())
	}
	mux.Handle("/healthz", d.checker.LivenessHandler())
	mux.Handle("/readyz", d.checker.ReadinessHandler())
	mux.Handle("/version", health.VersionHandler(Version, GitCommit, BuildDate))
	return mux
}

// serve runs the schedule until ctx is cancelled.
func (d *daemon) serve(ctx context.Context, runNow bool) error {
	cfg := d.env.cfg
	logger := d.env.logger.With("component", "scheduler")

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Policy.Watch {
		g.Go(func() error { return d.holder.Run(gctx) })
	}

	reload, stopReload := cli.ReloadSignal()
	defer stopReload()
	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-reload:
				logger.Info("SIGHUP received, reloading policy")
				_ = d.holder.Reload(gctx)
			}
		}
	})

	pruner := retention.NewPruner(d.kb.store, &retention.Config{
		MaxAge:   cfg.KnowledgeBase.Retention.MaxAge,
		Schedule: cfg.KnowledgeBase.Retention.Schedule,
	}, d.env.logger)
	prunes := retention.NewScheduler(pruner)
	prunes.OnPrune = func(removed int, err error) {
		if err != nil {
			return
		}
		d.env.metrics.RecordPruned(knowledge.CacheName, removed)
		if stats, err := d.kb.store.Stats(gctx); err == nil {
			d.env.metrics.SetCacheEntries(knowledge.CacheName, stats.Entries)
		}
	}
	if err := prunes.Start(gctx); err != nil {
		return err
	}
	defer prunes.Stop()

	// Runs outlive the signal so a stop never cuts reasoning short.
	runCtx := context.WithoutCancel(gctx)

	runs := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := runs.AddFunc(cfg.Schedule.Cron, func() { _ = d.runOnce(runCtx) }); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", cfg.Schedule.Cron, err)
	}

	if cfg.Schedule.MetricsAddress != "" {
		ln, err := net.Listen("tcp", cfg.Schedule.MetricsAddress)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.Schedule.MetricsAddress, err)
		}
		srv := &http.Server{Handler: d.handler(), ReadHeaderTimeout: 10 * time.Second}

		g.Go(func() error {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Schedule.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
		logger.Info("Serving metrics and health", "address", ln.Addr().String())
	}

	if runNow {
		g.Go(func() error {
			_ = d.runOnce(runCtx)
			return nil
		})
	}

	runs.Start()
	logger.Info("Scheduler started",
		"cron", cfg.Schedule.Cron,
		"input", cfg.Schedule.InputPath,
		"output", cfg.Schedule.OutputPath,
		"mode", string(d.mode),
	)

	<-gctx.Done()
	logger.Info("Shutting down, waiting for the running classification")

	select {
	case <-runs.Stop().Done():
	case <-time.After(cfg.Schedule.ShutdownTimeout):
		logger.Warn("Running classification did not finish before the shutdown timeout")
	}

	return g.Wait()
}
