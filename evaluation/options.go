//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"time"

	"trpc.group/trpc-go/trpc-eval-go/alert"
	"trpc.group/trpc-go/trpc-eval-go/baseline"
	baselineinmemory "trpc.group/trpc-go/trpc-eval-go/baseline/inmemory"
	"trpc.group/trpc-go/trpc-eval-go/cost"
	"trpc.group/trpc-go/trpc-eval-go/dataset"
	datasetinmemory "trpc.group/trpc-go/trpc-eval-go/dataset/inmemory"
	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	evalruninmemory "trpc.group/trpc-go/trpc-eval-go/evalrun/inmemory"
	"trpc.group/trpc-go/trpc-eval-go/runner"
	"trpc.group/trpc-go/trpc-eval-go/scorer/registry"
)

type options struct {
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

func newOptions(opt ...Option) *options {
	opts := &options{
		datasets:   datasetinmemory.New(),
		runs:       evalruninmemory.New(),
		baselines:  baselineinmemory.New(),
		registry:   registry.New(),
		comparator: baseline.NewComparator(baseline.DefaultThresholds()),
		dispatcher: alert.NewDispatcher(),
		now:        time.Now,
	}
	for _, o := range opt {
		o(opts)
	}
	return opts
}

// Option configures the evaluator.
type Option func(*options)

// WithDatasetManager sets the dataset store.
func WithDatasetManager(m dataset.Manager) Option {
	return func(o *options) {
		o.datasets = m
	}
}

// WithRunManager sets the run store.
func WithRunManager(m evalrun.Manager) Option {
	return func(o *options) {
		o.runs = m
	}
}

// WithBaselineManager sets the baseline store.
func WithBaselineManager(m baseline.Manager) Option {
	return func(o *options) {
		o.baselines = m
	}
}

// WithScorerRegistry sets the registry run configurations resolve scorer
// names against.
func WithScorerRegistry(r registry.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithModelBuilder sets the factory that turns model configurations into
// providers. Required.
func WithModelBuilder(b ModelBuilder) Option {
	return func(o *options) {
		o.buildModel = b
	}
}

// WithRunnerOptions appends options applied to every runner the evaluator
// creates, such as concurrency, retries and rate limits.
func WithRunnerOptions(opt ...runner.Option) Option {
	return func(o *options) {
		o.runnerOpts = append(o.runnerOpts, opt...)
	}
}

// WithComparator overrides the baseline comparator and its thresholds.
func WithComparator(c *baseline.Comparator) Option {
	return func(o *options) {
		if c != nil {
			o.comparator = c
		}
	}
}

// WithCostTracker sets the tracker evaluation spend accumulates into.
func WithCostTracker(t *cost.Tracker) Option {
	return func(o *options) {
		if t != nil {
			o.tracker = t
		}
	}
}

// WithDispatcher sets the alert dispatcher.
func WithDispatcher(d *alert.Dispatcher) Option {
	return func(o *options) {
		if d != nil {
			o.dispatcher = d
		}
	}
}

// WithDashboardURL sets the base URL report links in alert events point at.
func WithDashboardURL(url string) Option {
	return func(o *options) {
		o.dashboardURL = url
	}
}

// WithNow injects the clock, for tests.
func WithNow(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}
