package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/verdict/pkg/cli"
	"mercator-hq/verdict/pkg/config"
	"mercator-hq/verdict/pkg/knowledge"
	"mercator-hq/verdict/pkg/knowledge/storage"
	"mercator-hq/verdict/pkg/limits/ratelimit"
	"mercator-hq/verdict/pkg/policy/source"
	"mercator-hq/verdict/pkg/reasoner"
	"mercator-hq/verdict/pkg/reasonerfactory"
	"mercator-hq/verdict/pkg/telemetry/logging"
	"mercator-hq/verdict/pkg/telemetry/metrics"
	"mercator-hq/verdict/pkg/telemetry/tracing"
)

// environment is the configured runtime shared by the commands.
type environment struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer
}

// commandContext returns the command's context, or a background context
// when the command is invoked directly.
func commandContext(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}

// loadConfig reads the config file with environment overrides. A missing
// default config file is not an error: defaults are used instead.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == defaultConfigFile {
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			path = ""
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}

// newEnvironment loads configuration and sets up logging, metrics and
// tracing.
func newEnvironment() (*environment, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.FromConfig(cfg.Telemetry.Logging, os.Stderr))
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	tracer, err := tracing.New(&cfg.Telemetry.Tracing, Version)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	return &environment{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		tracer:  tracer,
	}, nil
}

// Close flushes pending spans.
func (e *environment) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), e.cfg.Telemetry.Tracing.OTLP.Timeout)
	defer cancel()
	if err := e.tracer.Shutdown(ctx); err != nil {
		e.logger.Warn("Failed to flush traces", "error", err)
	}
}

// openStore opens the configured knowledge base backend.
func (e *environment) openStore() (storage.Backend, error) {
	kb := e.cfg.KnowledgeBase
	store, err := storage.Open(storage.Config{
		Type: kb.Backend,
		SQLite: storage.SQLiteConfig{
			Path:        kb.SQLite.Path,
			Driver:      kb.SQLite.Driver,
			WALMode:     kb.SQLite.WALMode,
			BusyTimeout: kb.SQLite.BusyTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return store, nil
}

// reasonerConfig maps the reasoner section onto the provider config.
func reasonerConfig(c config.ReasonerConfig) reasoner.Config {
	return reasoner.Config{
		Name:                c.Name,
		Type:                c.Type,
		BaseURL:             c.BaseURL,
		APIKey:              c.APIKey,
		Model:               c.Model,
		Temperature:         c.Temperature,
		MaxTokens:           c.MaxTokens,
		JSONMode:            c.JSONMode,
		Timeout:             c.Timeout,
		MaxIdleConns:        c.MaxIdleConns,
		MaxIdleConnsPerHost: c.MaxIdleConnsPerHost,
		IdleConnTimeout:     c.IdleConnTimeout,
	}
}

// newReasoner builds the guarded reasoner. It returns nil when reasoning is
// disabled.
func (e *environment) newReasoner(ctx context.Context) (*reasoner.Guarded, error) {
	provider, err := reasonerfactory.New(ctx, reasonerConfig(e.cfg.Reasoner), e.logger)
	if err != nil {
		return nil, cli.NewConfigError("reasoner", err.Error())
	}
	if provider == nil {
		return nil, nil
	}

	opts := []reasoner.GuardOption{
		reasoner.WithTimeout(e.cfg.Reasoner.Timeout),
		reasoner.WithLogger(e.logger),
		reasoner.WithMetrics(e.metrics),
		reasoner.WithTracer(e.tracer.Provider().Tracer(tracing.InstrumentationName)),
	}
	if rate := e.cfg.Reasoner.RateLimit; rate > 0 {
		opts = append(opts, reasoner.WithRateLimiter(ratelimit.NewTokenBucket(e.cfg.Reasoner.RateBurst, rate)))
	}
	return reasoner.NewGuarded(provider, opts...)
}

// knowledgeBase is an open store with the knowledge base over it.
type knowledgeBase struct {
	*knowledge.KnowledgeBase
	store    storage.Backend
	reasoner *reasoner.Guarded
}

func (k *knowledgeBase) Close() error {
	var errs []error
	if k.reasoner != nil {
		errs = append(errs, k.reasoner.Close())
	}
	errs = append(errs, k.store.Close())
	return errors.Join(errs...)
}

// openKnowledgeBase opens the store and wires the reasoner into a knowledge
// base.
func (e *environment) openKnowledgeBase(ctx context.Context) (*knowledgeBase, error) {
	store, err := e.openStore()
	if err != nil {
		return nil, err
	}

	guarded, err := e.newReasoner(ctx)
	if err != nil {
		store.Close()
		return nil, err
	}

	// A nil *Guarded must not reach the interface.
	var r knowledge.Reasoner
	if guarded != nil {
		r = guarded
	}

	kb, err := knowledge.New(store, r,
		knowledge.WithLogger(e.logger),
		knowledge.WithMetrics(e.metrics),
		knowledge.WithConcurrency(e.cfg.Pipeline.Concurrency),
	)
	if err != nil {
		store.Close()
		return nil, err
	}

	if stats, err := store.Stats(ctx); err == nil {
		e.metrics.SetCacheEntries(knowledge.CacheName, stats.Entries)
	}
	return &knowledgeBase{KnowledgeBase: kb, store: store, reasoner: guarded}, nil
}

// policySource builds the configured rule source. A non-empty override
// path forces a file source.
func (e *environment) policySource(override string) (source.Source, error) {
	p := e.cfg.Policy
	if override != "" {
		return source.NewFileSource(override, source.WithFileLogger(e.logger)), nil
	}

	switch p.Source {
	case "file":
		return source.NewFileSource(p.FilePath,
			source.WithDebounce(p.Debounce),
			source.WithFileLogger(e.logger),
		), nil
	case "git":
		src, err := source.NewGitSource(source.GitConfig{
			URL:          p.Git.URL,
			Branch:       p.Git.Branch,
			File:         p.Git.File,
			LocalPath:    p.Git.LocalPath,
			Depth:        p.Git.Depth,
			Timeout:      p.Git.Timeout,
			PollInterval: p.Git.PollInterval,
			Auth: source.AuthConfig{
				Type:             p.Git.Auth.Type,
				Token:            p.Git.Auth.Token,
				SSHKeyPath:       p.Git.Auth.SSHKeyPath,
				SSHKeyPassphrase: p.Git.Auth.SSHKeyPassphrase,
			},
		}, e.logger)
		if err != nil {
			return nil, cli.NewConfigError("policy.git", err.Error())
		}
		return src, nil
	default:
		return nil, cli.NewConfigError("policy.source", fmt.Sprintf("unknown policy source %q", p.Source))
	}
}

// loadRules loads the rule policy. Policy errors are configuration errors.
func (e *environment) loadRules(ctx context.Context, override string) (*source.Holder, error) {
	src, err := e.policySource(override)
	if err != nil {
		return nil, err
	}
	holder, err := source.NewHolder(ctx, src, e.logger)
	if err != nil {
		return nil, cli.NewConfigError("policy", err.Error())
	}
	return holder, nil
}
