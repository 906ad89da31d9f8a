//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evaluation orchestrates evaluation runs end to end: dataset
// loading, execution, aggregation, cost accounting, baseline comparison and
// alerting behind one facade.
package evaluation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/alert"
	"trpc.group/trpc-go/trpc-eval-go/baseline"
	"trpc.group/trpc-go/trpc-eval-go/cost"
	"trpc.group/trpc-go/trpc-eval-go/dataset"
	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/metrics"
	"trpc.group/trpc-go/trpc-eval-go/model"
	"trpc.group/trpc-go/trpc-eval-go/runner"
	"trpc.group/trpc-go/trpc-eval-go/scorer/registry"
	"trpc.group/trpc-go/trpc-eval-go/telemetry"
)

// ModelBuilder turns a model configuration into a live provider. The CLI
// installs one per configured provider family; tests install fakes.
type ModelBuilder func(cfg evalrun.ModelConfig) (model.Provider, error)

// RunConfig is the per-run execution request.
type RunConfig struct {
	// Model identifies the model under test and its sampling overrides.
	Model evalrun.ModelConfig `json:"model"`
	// ScorerNames lists the scorers to apply, resolved from the registry.
	ScorerNames []string `json:"scorer_names"`
	// PassPolicy combines scorer verdicts. The zero value requires all
	// scorers to pass.
	PassPolicy runner.PassPolicy `json:"pass_policy"`
}

// RunOutcome bundles everything one evaluation run produced.
type RunOutcome struct {
	// Run is the persisted run record, terminal status included.
	Run *evalrun.EvalRun `json:"run"`
	// Report is the aggregated metrics report.
	Report *metrics.Report `json:"report"`
	// Regressions lists metrics that moved the wrong way against the active
	// baseline, most severe first.
	Regressions []baseline.Regression `json:"regressions,omitempty"`
	// BaselineMissing reports that the dataset has no active baseline yet, a
	// prompt to promote one rather than a failure.
	BaselineMissing bool `json:"baseline_missing,omitempty"`
}

// Evaluator is the orchestration facade over the evaluation subsystems.
type Evaluator struct {
	datasets     dataset.Manager
	runs         evalrun.Manager
	baselines    baseline.Manager
	registry     registry.Registry
	buildModel   ModelBuilder
	runnerOpts   []runner.Option
	comparator   *baseline.Comparator
	tracker      *cost.Tracker
	dispatcher   *alert.Dispatcher
	dashboardURL string
	now          func() time.Time
}

// New creates an evaluator. Managers default to their in-memory
// implementations; a model builder must be supplied.
func New(opt ...Option) (*Evaluator, error) {
	opts := newOptions(opt...)
	if opts.buildModel == nil {
		return nil, errors.New("model builder is nil")
	}
	if opts.datasets == nil {
		return nil, errors.New("dataset manager is nil")
	}
	if opts.runs == nil {
		return nil, errors.New("run manager is nil")
	}
	if opts.baselines == nil {
		return nil, errors.New("baseline manager is nil")
	}
	if opts.registry == nil {
		return nil, errors.New("scorer registry is nil")
	}
	if opts.tracker == nil {
		tracker, err := cost.NewTracker(nil)
		if err != nil {
			return nil, fmt.Errorf("create cost tracker: %w", err)
		}
		opts.tracker = tracker
	}
	return &Evaluator{
		datasets:     opts.datasets,
		runs:         opts.runs,
		baselines:    opts.baselines,
		registry:     opts.registry,
		buildModel:   opts.buildModel,
		runnerOpts:   opts.runnerOpts,
		comparator:   opts.comparator,
		tracker:      opts.tracker,
		dispatcher:   opts.dispatcher,
		dashboardURL: opts.dashboardURL,
		now:          opts.now,
	}, nil
}

// Run evaluates one dataset with one model configuration. Configuration
// faults (unknown dataset, invalid dataset document, unresolvable scorer,
// provider construction) are returned before the run record is persisted.
// Execution failures persist a Failed run, dispatch a run_failure alert and
// return the failure. On cancellation the outcome carries the Cancelled run
// and the report over its partial results alongside the context error.
func (e *Evaluator) Run(ctx context.Context, datasetID string, cfg RunConfig) (*RunOutcome, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	ds, err := e.datasets.Get(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	for _, name := range cfg.ScorerNames {
		if _, err := e.registry.Get(name); err != nil {
			return nil, fmt.Errorf("resolve scorer: %w", err)
		}
	}
	provider, err := e.buildModel(cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("build model provider: %w", err)
	}
	if cfg.Model.ID == "" {
		cfg.Model.ID = provider.Name()
	}
	r, err := runner.New(provider, e.registry, e.runnerOpts...)
	if err != nil {
		return nil, fmt.Errorf("create runner: %w", err)
	}
	defer r.Close()

	run := &evalrun.EvalRun{
		ID:             evalrun.NewRunID(),
		DatasetID:      ds.ID,
		DatasetVersion: ds.Version,
		Model:          cfg.Model,
		Status:         evalrun.StatusPending,
		StartedAt:      e.now(),
	}
	if err := e.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}
	run.Status = evalrun.StatusRunning
	if err := e.runs.Save(ctx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	results, runErr := r.Run(ctx, ds, runner.Config{
		ScorerNames: cfg.ScorerNames,
		PassPolicy:  cfg.PassPolicy,
		Model:       cfg.Model,
	})
	completed := e.now()
	run.CompletedAt = &completed
	run.Results = results
	switch {
	case runErr == nil:
		run.Status = evalrun.StatusCompleted
	case errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded):
		run.Status = evalrun.StatusCancelled
		run.Error = runErr.Error()
	default:
		run.Status = evalrun.StatusFailed
		run.Error = runErr.Error()
	}
	// The terminal state is persisted even when ctx is already cancelled.
	saveCtx := context.WithoutCancel(ctx)
	if err := e.runs.Save(saveCtx, run); err != nil {
		return nil, fmt.Errorf("save run: %w", err)
	}

	if run.Status == evalrun.StatusFailed {
		e.dispatch(saveCtx, alert.NewRunFailureEvent(run.DatasetID, run.ID, runErr, e.now()))
		return nil, fmt.Errorf("run %s failed: %w", run.ID, runErr)
	}

	report := metrics.Aggregate(run.ID, run.Results)
	telemetry.RecordRunDuration(saveCtx, run.DatasetID, run.Model.ID, run.Duration())
	telemetry.AddRunCost(saveCtx, run.DatasetID, run.Model.ID, report.TotalCostUSD)
	e.settleCosts(saveCtx, run)

	outcome := &RunOutcome{Run: run, Report: report}
	if run.Status == evalrun.StatusCancelled {
		// A partial run is not comparable against the baseline.
		return outcome, runErr
	}
	regressions, missing, err := e.compareBaseline(saveCtx, run, report)
	if err != nil {
		return nil, err
	}
	outcome.Regressions = regressions
	outcome.BaselineMissing = missing
	return outcome, nil
}

// settleCosts folds every result into the cost tracker and dispatches the
// budget events the spend triggered.
func (e *Evaluator) settleCosts(ctx context.Context, run *evalrun.EvalRun) {
	for _, res := range run.Results {
		for _, ev := range e.tracker.Accumulate(res, run.DatasetID, run.Model.ID) {
			event := alert.NewBudgetEvent(ev, e.now())
			event.DatasetID = run.DatasetID
			event.RunID = run.ID
			e.dispatch(ctx, event)
		}
	}
}

// compareBaseline grades the report against the dataset's active baseline
// and dispatches one alert per regression. A dataset without an active
// baseline reports missing instead of regressing.
func (e *Evaluator) compareBaseline(ctx context.Context, run *evalrun.EvalRun, report *metrics.Report) ([]baseline.Regression, bool, error) {
	base, err := e.baselines.Active(ctx, run.DatasetID)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, true, nil
		}
		return nil, false, fmt.Errorf("load active baseline: %w", err)
	}
	regressions, err := e.comparator.Compare(report, base)
	if err != nil {
		return nil, false, fmt.Errorf("compare against baseline %s: %w", base.ID, err)
	}
	for _, reg := range regressions {
		e.dispatch(ctx, alert.NewRegressionEvent(run.DatasetID, run.ID, reg, e.now()))
	}
	return regressions, false, nil
}

// dispatch delivers one alert event. The dispatcher logs per-channel
// failures; alerting is best-effort and never fails the evaluation.
func (e *Evaluator) dispatch(ctx context.Context, event *alert.Event) {
	if e.dashboardURL != "" && event.RunID != "" {
		event.ReportURL = fmt.Sprintf("%s/runs/%s",
			strings.TrimRight(e.dashboardURL, "/"), event.RunID)
	}
	_ = e.dispatcher.Dispatch(ctx, event)
}

// PromoteBaseline promotes a completed run to be its dataset's active
// baseline, pinning the run's aggregated metrics for future comparisons.
func (e *Evaluator) PromoteBaseline(ctx context.Context, runID string) (*baseline.Baseline, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	run, err := e.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	report := metrics.Aggregate(run.ID, run.Results)
	b, err := baseline.NewFromRun(run, report, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.baselines.Promote(ctx, b); err != nil {
		return nil, fmt.Errorf("promote baseline: %w", err)
	}
	return b, nil
}
