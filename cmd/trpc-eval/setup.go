//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/alert"
	"trpc.group/trpc-go/trpc-eval-go/baseline"
	basemem "trpc.group/trpc-go/trpc-eval-go/baseline/inmemory"
	basemysql "trpc.group/trpc-go/trpc-eval-go/baseline/mysql"
	"trpc.group/trpc-go/trpc-eval-go/config"
	"trpc.group/trpc-go/trpc-eval-go/cost"
	"trpc.group/trpc-go/trpc-eval-go/dataset"
	datasetmem "trpc.group/trpc-go/trpc-eval-go/dataset/inmemory"
	datasetlocal "trpc.group/trpc-go/trpc-eval-go/dataset/local"
	openaiembed "trpc.group/trpc-go/trpc-eval-go/embedding/openai"
	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	runmem "trpc.group/trpc-go/trpc-eval-go/evalrun/inmemory"
	runlocal "trpc.group/trpc-go/trpc-eval-go/evalrun/local"
	"trpc.group/trpc-go/trpc-eval-go/evaluation"
	"trpc.group/trpc-go/trpc-eval-go/log"
	"trpc.group/trpc-go/trpc-eval-go/model"
	openaimodel "trpc.group/trpc-go/trpc-eval-go/model/openai"
	"trpc.group/trpc-go/trpc-eval-go/runner"
	"trpc.group/trpc-go/trpc-eval-go/scorer"
	"trpc.group/trpc-go/trpc-eval-go/scorer/exactmatch"
	"trpc.group/trpc-go/trpc-eval-go/scorer/f1"
	"trpc.group/trpc-go/trpc-eval-go/scorer/judge"
	"trpc.group/trpc-go/trpc-eval-go/scorer/recallatk"
	"trpc.group/trpc-go/trpc-eval-go/scorer/registry"
	"trpc.group/trpc-go/trpc-eval-go/scorer/semantic"
	storagemysql "trpc.group/trpc-go/trpc-eval-go/storage/mysql"
	ametric "trpc.group/trpc-go/trpc-eval-go/telemetry/metric"
	atrace "trpc.group/trpc-go/trpc-eval-go/telemetry/trace"
)

// engine bundles the assembled subsystems one command invocation works with.
type engine struct {
	cfg         *config.Config
	evaluator   *evaluation.Evaluator
	datasets    dataset.Manager
	runs        evalrun.Manager
	baselines   baseline.Manager
	tracker     *cost.Tracker
	passPolicy  runner.PassPolicy
	scorerNames []string

	cleanups []func() error
}

// newEngine wires stores, scorers, tracker, dispatcher and telemetry from the
// resolved configuration.
func newEngine(ctx context.Context, cfg *config.Config) (*engine, error) {
	eng := &engine{cfg: cfg}
	if err := eng.init(ctx); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

func (e *engine) init(ctx context.Context) error {
	cfg := e.cfg

	if cfg.Telemetry.Enabled {
		if err := e.startTelemetry(ctx); err != nil {
			return err
		}
	}

	if dir := cfg.Storage.Dir; dir != "" {
		e.datasets = datasetlocal.New(filepath.Join(dir, "datasets"))
		e.runs = runlocal.New(filepath.Join(dir, "runs"))
	} else {
		e.datasets = datasetmem.New()
		e.runs = runmem.New()
	}
	if dsn := cfg.Storage.MySQLDSN; dsn != "" {
		client, err := storagemysql.NewClient(storagemysql.WithDSN(dsn))
		if err != nil {
			return fmt.Errorf("connect mysql: %w", err)
		}
		e.cleanups = append(e.cleanups, client.Close)
		e.baselines, err = basemysql.New(client)
		if err != nil {
			return fmt.Errorf("open baseline store: %w", err)
		}
	} else {
		e.baselines = basemem.New()
	}

	reg, err := e.buildRegistry()
	if err != nil {
		return err
	}
	for _, sc := range cfg.Scorers {
		e.scorerNames = append(e.scorerNames, sc.Name)
	}

	e.passPolicy, err = runner.ParsePassPolicy(cfg.Runner.PassPolicy)
	if err != nil {
		return err
	}

	budgets, err := buildBudgets(cfg.Budgets)
	if err != nil {
		return err
	}
	e.tracker, err = cost.NewTracker(budgets)
	if err != nil {
		return err
	}

	dispatcher, err := buildDispatcher(cfg.Alerts)
	if err != nil {
		return err
	}

	e.evaluator, err = evaluation.New(
		evaluation.WithDatasetManager(e.datasets),
		evaluation.WithRunManager(e.runs),
		evaluation.WithBaselineManager(e.baselines),
		evaluation.WithScorerRegistry(reg),
		evaluation.WithModelBuilder(e.buildProvider),
		evaluation.WithRunnerOptions(buildRunnerOptions(cfg.Runner)...),
		evaluation.WithComparator(baseline.NewComparator(cfg.Baseline.Thresholds())),
		evaluation.WithCostTracker(e.tracker),
		evaluation.WithDispatcher(dispatcher),
		evaluation.WithDashboardURL(cfg.Alerts.DashboardURL),
	)
	return err
}

// Close releases resources in reverse acquisition order. Failures are logged,
// not returned, so command results are not masked by shutdown noise.
func (e *engine) Close() {
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		if err := e.cleanups[i](); err != nil {
			log.Errorf("cleanup failed: %v", err)
		}
	}
}

func (e *engine) startTelemetry(ctx context.Context) error {
	cfg := e.cfg.Telemetry
	clean, err := atrace.Start(ctx,
		atrace.WithEndpoint(cfg.Endpoint),
		atrace.WithProtocol(cfg.Protocol),
	)
	if err != nil {
		return fmt.Errorf("start trace exporter: %w", err)
	}
	e.cleanups = append(e.cleanups, clean)

	mp, err := ametric.NewMeterProvider(ctx,
		ametric.WithEndpoint(cfg.Endpoint),
		ametric.WithProtocol(cfg.Protocol),
	)
	if err != nil {
		return fmt.Errorf("start metric exporter: %w", err)
	}
	e.cleanups = append(e.cleanups, func() error { return mp.Shutdown(context.Background()) })
	return ametric.InitMeterProvider(mp)
}

// buildProvider is the evaluator's ModelBuilder. Every candidate shares the
// configured endpoint and credential; only the model name varies.
func (e *engine) buildProvider(mc evalrun.ModelConfig) (model.Provider, error) {
	name := mc.ID
	if name == "" {
		name = e.cfg.Model.Name
	}
	return e.newOpenAIModel(name)
}

func (e *engine) newOpenAIModel(name string) (model.Provider, error) {
	key, err := e.cfg.Model.APIKey()
	if err != nil {
		return nil, err
	}
	opts := []openaimodel.Option{openaimodel.WithAPIKey(key)}
	if e.cfg.Model.BaseURL != "" {
		opts = append(opts, openaimodel.WithBaseURL(e.cfg.Model.BaseURL))
	}
	return openaimodel.New(name, opts...), nil
}

func (e *engine) buildRegistry() (registry.Registry, error) {
	reg := registry.New()
	// The judge scores with the configured model, pinned across candidates
	// so comparisons are judged by one referee.
	var judgeModel model.Provider
	for _, sc := range e.cfg.Scorers {
		s, err := e.buildScorer(sc, &judgeModel)
		if err != nil {
			return nil, fmt.Errorf("scorer %s: %w", sc.Name, err)
		}
		if err := reg.Register(sc.Name, s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (e *engine) buildScorer(sc config.Scorer, judgeModel *model.Provider) (scorer.Scorer, error) {
	switch sc.Type {
	case config.ScorerExactMatch:
		opts := []exactmatch.Option{exactmatch.WithName(sc.Name)}
		if sc.IgnoreKeyOrder {
			opts = append(opts, exactmatch.WithIgnoreKeyOrder(true))
		}
		if len(sc.IgnorePaths) > 0 {
			opts = append(opts, exactmatch.WithIgnorePaths(sc.IgnorePaths...))
		}
		return exactmatch.New(opts...), nil
	case config.ScorerF1:
		opts := []f1.Option{f1.WithName(sc.Name)}
		if sc.MinScore != nil {
			opts = append(opts, f1.WithMinScore(*sc.MinScore))
		}
		return f1.New(opts...), nil
	case config.ScorerSemantic:
		key, err := e.cfg.Model.APIKey()
		if err != nil {
			return nil, err
		}
		embedOpts := []openaiembed.Option{openaiembed.WithAPIKey(key)}
		if e.cfg.Model.BaseURL != "" {
			embedOpts = append(embedOpts, openaiembed.WithBaseURL(e.cfg.Model.BaseURL))
		}
		if sc.EmbeddingModel != "" {
			embedOpts = append(embedOpts, openaiembed.WithModel(sc.EmbeddingModel))
		}
		opts := []semantic.Option{semantic.WithName(sc.Name)}
		if sc.Threshold != nil {
			opts = append(opts, semantic.WithThreshold(*sc.Threshold))
		}
		return semantic.New(openaiembed.New(embedOpts...), opts...), nil
	case config.ScorerJudge:
		if *judgeModel == nil {
			m, err := e.newOpenAIModel(e.cfg.Model.Name)
			if err != nil {
				return nil, err
			}
			*judgeModel = m
		}
		opts := []judge.Option{judge.WithName(sc.Name)}
		if sc.Threshold != nil {
			opts = append(opts, judge.WithThreshold(*sc.Threshold))
		}
		if len(sc.Rubric) > 0 {
			criteria := make([]judge.Criterion, 0, len(sc.Rubric))
			for _, c := range sc.Rubric {
				criteria = append(criteria, judge.Criterion{
					Name:        c.Name,
					Description: c.Description,
					Weight:      c.Weight,
				})
			}
			opts = append(opts, judge.WithCriteria(criteria...))
		}
		if secs := e.cfg.Runner.JudgeTimeoutSeconds; secs > 0 {
			opts = append(opts, judge.WithScoreTimeout(time.Duration(secs)*time.Second))
		}
		return judge.New(*judgeModel, opts...), nil
	case config.ScorerRecallAtK:
		if sc.Preset != "" {
			return recallatk.NewPreset(sc.Preset)
		}
		opts := []recallatk.Option{recallatk.WithName(sc.Name)}
		if sc.K > 0 {
			opts = append(opts, recallatk.WithK(sc.K))
		}
		if sc.MinRecall != nil {
			opts = append(opts, recallatk.WithMinRecall(*sc.MinRecall))
		}
		return recallatk.New(opts...), nil
	default:
		return nil, fmt.Errorf("unknown scorer type %q", sc.Type)
	}
}

// runConfig builds the per-run request, with optional model and scorer
// overrides from command flags.
func (e *engine) runConfig(modelName string, scorers []string) evaluation.RunConfig {
	id := modelName
	if id == "" {
		id = e.cfg.Model.Name
	}
	names := scorers
	if len(names) == 0 {
		names = e.scorerNames
	}
	return evaluation.RunConfig{
		Model: evalrun.ModelConfig{
			ID:          id,
			Provider:    e.cfg.Model.Provider,
			Temperature: e.cfg.Model.Temperature,
			MaxTokens:   e.cfg.Model.MaxTokens,
		},
		ScorerNames: names,
		PassPolicy:  e.passPolicy,
	}
}

func buildBudgets(budgets []config.Budget) ([]cost.Budget, error) {
	out := make([]cost.Budget, 0, len(budgets))
	for _, b := range budgets {
		period, err := cost.ParsePeriod(b.Period)
		if err != nil {
			return nil, err
		}
		out = append(out, cost.Budget{
			Period:                period,
			LimitUSD:              b.LimitUSD,
			AlertThresholdPercent: b.AlertThresholdPercent,
		})
	}
	return out, nil
}

func buildRunnerOptions(cfg config.Runner) []runner.Option {
	opts := []runner.Option{
		runner.WithConcurrency(cfg.Concurrency),
		runner.WithMaxRetries(cfg.MaxRetries),
		runner.WithCaseTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second),
		runner.WithPricer(cost.NewPriceTable()),
	}
	if cfg.RateLimitPerSecond > 0 {
		opts = append(opts, runner.WithRateLimit(cfg.RateLimitPerSecond, cfg.Concurrency))
	}
	return opts
}

func buildDispatcher(cfg config.Alerts) (*alert.Dispatcher, error) {
	minSeverity, err := baseline.ParseSeverity(cfg.MinSeverity)
	if err != nil {
		return nil, err
	}
	var opts []alert.DispatcherOption
	if cfg.HistorySize > 0 {
		opts = append(opts, alert.WithHistoryCapacity(cfg.HistorySize))
	}
	if cfg.WebhookURL != "" {
		ch, err := alert.NewWebhookChannel(cfg.WebhookURL)
		if err != nil {
			return nil, fmt.Errorf("webhook channel: %w", err)
		}
		opts = append(opts, alert.WithChannel(ch, minSeverity))
	}
	if email := cfg.Email; email != nil {
		password, err := email.Password()
		if err != nil {
			return nil, err
		}
		ch, err := alert.NewEmailChannel(alert.EmailConfig{
			Host:     email.Host,
			Port:     email.Port,
			Username: email.Username,
			Password: password,
			From:     email.From,
			To:       email.To,
		})
		if err != nil {
			return nil, fmt.Errorf("email channel: %w", err)
		}
		opts = append(opts, alert.WithChannel(ch, minSeverity))
	}
	return alert.NewDispatcher(opts...), nil
}
