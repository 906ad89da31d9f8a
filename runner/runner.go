//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package runner executes a dataset's test cases against a model provider on
// a bounded worker pool, scoring each response and collecting exactly one
// result per case.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/model"
	"trpc.group/trpc-go/trpc-eval-go/scorer"
	"trpc.group/trpc-go/trpc-eval-go/scorer/registry"
	"trpc.group/trpc-go/trpc-eval-go/telemetry"
	atrace "trpc.group/trpc-go/trpc-eval-go/telemetry/trace"
)

const (
	// DefaultConcurrency is the worker pool size when not configured.
	DefaultConcurrency = 4
	// DefaultMaxRetries is the retry budget for each model call.
	DefaultMaxRetries = 3
	// DefaultCaseTimeout bounds one test case end to end.
	DefaultCaseTimeout = 60 * time.Second

	defaultBaseBackoff = time.Second
	defaultMaxBackoff  = 30 * time.Second
)

// PassPolicy decides how scorer verdicts combine into the case verdict.
type PassPolicy int

const (
	// PassPolicyAll passes a case only when every scorer passes.
	PassPolicyAll PassPolicy = iota
	// PassPolicyAny passes a case when at least one scorer passes.
	PassPolicyAny
)

// String returns the string representation of the pass policy.
func (p PassPolicy) String() string {
	switch p {
	case PassPolicyAll:
		return "all"
	case PassPolicyAny:
		return "any"
	default:
		return "unknown"
	}
}

// ParsePassPolicy maps a configuration string to a PassPolicy. The empty
// string maps to PassPolicyAll.
func ParsePassPolicy(s string) (PassPolicy, error) {
	switch s {
	case "", "all":
		return PassPolicyAll, nil
	case "any":
		return PassPolicyAny, nil
	default:
		return PassPolicyAll, fmt.Errorf("unknown pass policy %q", s)
	}
}

// Pricer estimates the dollar cost of one model call from its token usage.
type Pricer interface {
	EstimateUSD(modelID string, promptTokens, completionTokens int) float64
}

// Config carries the per-run execution settings.
type Config struct {
	// ScorerNames lists the scorers to run, resolved from the registry.
	ScorerNames []string
	// PassPolicy combines scorer verdicts. The zero value requires all
	// scorers to pass.
	PassPolicy PassPolicy
	// Model identifies the model under test and its sampling overrides.
	Model evalrun.ModelConfig
}

// Runner executes datasets on a bounded worker pool.
type Runner struct {
	provider    model.Provider
	scorers     registry.Registry
	concurrency int
	maxRetries  int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	caseTimeout time.Duration
	limiter     *rate.Limiter
	pricer      Pricer
	now         func() time.Time
	pool        *ants.PoolWithFunc
}

// New creates a runner bound to a provider and a scorer registry.
func New(provider model.Provider, scorers registry.Registry, opt ...Option) (*Runner, error) {
	if provider == nil {
		return nil, errors.New("provider is nil")
	}
	if scorers == nil {
		return nil, errors.New("scorer registry is nil")
	}
	r := &Runner{
		provider:    provider,
		scorers:     scorers,
		concurrency: DefaultConcurrency,
		maxRetries:  DefaultMaxRetries,
		baseBackoff: defaultBaseBackoff,
		maxBackoff:  defaultMaxBackoff,
		caseTimeout: DefaultCaseTimeout,
		now:         time.Now,
	}
	for _, o := range opt {
		if o != nil {
			o(r)
		}
	}
	pool, err := createCaseExecutionPool(r.concurrency)
	if err != nil {
		return nil, err
	}
	r.pool = pool
	return r, nil
}

// Close releases the worker pool.
func (r *Runner) Close() {
	if r.pool != nil {
		r.pool.Release()
	}
}

// runState is the read-only part of one Run shared by all workers.
type runState struct {
	runner      *Runner
	datasetID   string
	scorers     []scorer.Scorer
	passPolicy  PassPolicy
	modelID     string
	temperature *float64
	maxTokens   *int
	timeout     time.Duration
}

// Run executes every case of the dataset and returns one result per case in
// dataset order. On cancellation it stops dispatching, lets in-flight cases
// finish within their own budget, and returns the partial results alongside
// the context error.
func (r *Runner) Run(ctx context.Context, ds *dataset.Dataset, cfg Config) ([]*evalrun.TestCaseResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if ds == nil {
		return nil, errors.New("dataset is nil")
	}
	if len(ds.Cases) == 0 {
		return nil, fmt.Errorf("dataset %s has no test cases", ds.ID)
	}
	st, err := r.newRunState(ds, cfg)
	if err != nil {
		return nil, err
	}
	ctx, span := atrace.Tracer.Start(ctx, telemetry.NewRunSpanName(ds.ID))
	defer span.End()
	telemetry.TraceRun(span, ds.ID, ds.Version, st.modelID)
	results := make([]*evalrun.TestCaseResult, len(ds.Cases))
	var wg sync.WaitGroup
	for idx := range ds.Cases {
		// Cancellation is cooperative: checked between dispatches only.
		if ctx.Err() != nil {
			break
		}
		testCase := &ds.Cases[idx]
		wg.Add(1)
		param := caseExecutionParamPool.Get().(*caseExecutionParam)
		param.idx = idx
		param.ctx = ctx
		param.testCase = testCase
		param.run = st
		param.results = results
		param.wg = &wg
		if err := r.pool.Invoke(param); err != nil {
			wg.Done()
			results[idx] = newSubmitFailedResult(st, testCase,
				fmt.Errorf("submit test case %s: %w", testCase.ID, err))
			param.reset()
			caseExecutionParamPool.Put(param)
		}
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return compactResults(results), err
	}
	return results, nil
}

func (r *Runner) newRunState(ds *dataset.Dataset, cfg Config) (*runState, error) {
	if len(cfg.ScorerNames) == 0 {
		return nil, errors.New("no scorers configured")
	}
	resolved := make([]scorer.Scorer, 0, len(cfg.ScorerNames))
	for _, name := range cfg.ScorerNames {
		sc, err := r.scorers.Get(name)
		if err != nil {
			return nil, fmt.Errorf("resolve scorer: %w", err)
		}
		resolved = append(resolved, sc)
	}
	modelID := cfg.Model.ID
	if modelID == "" {
		modelID = r.provider.Name()
	}
	return &runState{
		runner:      r,
		datasetID:   ds.ID,
		scorers:     resolved,
		passPolicy:  cfg.PassPolicy,
		modelID:     modelID,
		temperature: cfg.Model.Temperature,
		maxTokens:   cfg.Model.MaxTokens,
		timeout:     effectiveCaseTimeout(r.caseTimeout, resolved),
	}, nil
}

// effectiveCaseTimeout stretches the base budget to the largest hint among
// the scorers, so judge-backed runs keep their slower budget.
func effectiveCaseTimeout(base time.Duration, scorers []scorer.Scorer) time.Duration {
	timeout := base
	for _, sc := range scorers {
		hint, ok := sc.(scorer.TimeoutHint)
		if !ok {
			continue
		}
		if d := hint.ScoreTimeout(); d > timeout {
			timeout = d
		}
	}
	return timeout
}

// executeCase runs one test case: the model call with retries, then every
// configured scorer on the response.
func (r *Runner) executeCase(runCtx context.Context, st *runState, tc *dataset.TestCase) *evalrun.TestCaseResult {
	// A dispatched case finishes within its own budget even when the run
	// context is cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(runCtx), st.timeout)
	defer cancel()
	ctx, span := atrace.Tracer.Start(ctx, telemetry.NewCaseSpanName(tc.ID))
	defer span.End()

	result := &evalrun.TestCaseResult{
		TestCaseID: tc.ID,
		Category:   tc.Category,
		Metadata:   evalrun.ResultMetadata{ModelID: st.modelID},
	}
	defer func() {
		result.Metadata.Timestamp = r.now()
		telemetry.TraceCaseResult(span, st.datasetID, result)
		telemetry.IncCaseCnt(ctx, st.datasetID, result)
	}()

	req, err := newCaseRequest(st, tc)
	if err != nil {
		result.Metadata.Error = err.Error()
		return result
	}
	rsp, attempts, latency, err := r.complete(ctx, req)
	result.Metadata.Attempts = attempts
	result.Metadata.LatencyMs = latency.Milliseconds()
	telemetry.AddCaseRetryCnt(ctx, st.datasetID, st.modelID, int64(attempts-1))
	if err != nil {
		result.Metadata.Error = err.Error()
		return result
	}
	result.Metadata.PromptTokens = rsp.Usage.PromptTokens
	result.Metadata.CompletionTokens = rsp.Usage.CompletionTokens
	telemetry.RecordCaseTokenUsage(ctx, st.modelID,
		int64(rsp.Usage.PromptTokens), int64(rsp.Usage.CompletionTokens))
	telemetry.RecordCaseDuration(ctx, st.modelID, latency)
	if r.pricer != nil {
		result.Metadata.CostUSD = r.pricer.EstimateUSD(
			st.modelID, rsp.Usage.PromptTokens, rsp.Usage.CompletionTokens)
	}
	in := &scorer.Input{Actual: rsp.Text, Expected: tc.Expected, TestCase: tc}
	result.ScorerResults = make([]*scorer.Result, 0, len(st.scorers))
	for _, sc := range st.scorers {
		result.ScorerResults = append(result.ScorerResults, scoreCase(ctx, sc, in))
	}
	result.Passed = combineVerdicts(st.passPolicy, result.ScorerResults)
	return result
}

// complete calls the provider, retrying retryable errors up to the retry
// budget. It returns the attempt count and the duration of the last attempt.
func (r *Runner) complete(ctx context.Context, req *model.Request) (*model.Response, int, time.Duration, error) {
	attempts := 0
	for {
		attempts++
		if r.limiter != nil {
			if err := r.limiter.Wait(ctx); err != nil {
				return nil, attempts, 0, fmt.Errorf("rate limit wait: %w", err)
			}
		}
		start := time.Now()
		rsp, err := r.provider.Complete(ctx, req)
		latency := time.Since(start)
		if err == nil {
			return rsp, attempts, latency, nil
		}
		if attempts > r.maxRetries || !model.Retryable(err) {
			return nil, attempts, latency, err
		}
		if slErr := sleepContext(ctx, r.retryDelay(attempts-1, err)); slErr != nil {
			return nil, attempts, latency, err
		}
	}
}

// retryDelay doubles the base delay per retry up to the cap. A provider
// supplied retry-after hint overrides the computed delay, even past the cap.
func (r *Runner) retryDelay(retries int, err error) time.Duration {
	d := r.baseBackoff
	for i := 0; i < retries && d < r.maxBackoff; i++ {
		d *= 2
	}
	if d > r.maxBackoff {
		d = r.maxBackoff
	}
	if hint := model.RetryAfterHint(err); hint > d {
		d = hint
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newCaseRequest renders the case input as a single user message.
func newCaseRequest(st *runState, tc *dataset.TestCase) (*model.Request, error) {
	text, err := scorer.Text(tc.Input)
	if err != nil {
		return nil, fmt.Errorf("render input of test case %s: %w", tc.ID, err)
	}
	return &model.Request{
		Messages:    []model.Message{model.NewUserMessage(text)},
		Temperature: st.temperature,
		MaxTokens:   st.maxTokens,
	}, nil
}

// scoreCase contains scorer failures: an error becomes a failed result for
// that scorer alone, never an aborted case.
func scoreCase(ctx context.Context, sc scorer.Scorer, in *scorer.Input) *scorer.Result {
	res, err := sc.Score(ctx, in)
	if err != nil {
		return &scorer.Result{
			ScorerName: sc.Name(),
			Passed:     false,
			Reason:     fmt.Sprintf("scorer error: %v", err),
		}
	}
	if res.ScorerName == "" {
		res.ScorerName = sc.Name()
	}
	return res
}

func combineVerdicts(policy PassPolicy, results []*scorer.Result) bool {
	if len(results) == 0 {
		return false
	}
	if policy == PassPolicyAny {
		for _, res := range results {
			if res.Passed {
				return true
			}
		}
		return false
	}
	for _, res := range results {
		if !res.Passed {
			return false
		}
	}
	return true
}

func newSubmitFailedResult(st *runState, tc *dataset.TestCase, err error) *evalrun.TestCaseResult {
	return &evalrun.TestCaseResult{
		TestCaseID: tc.ID,
		Category:   tc.Category,
		Metadata: evalrun.ResultMetadata{
			ModelID:   st.modelID,
			Timestamp: st.runner.now(),
			Error:     err.Error(),
		},
	}
}

// compactResults drops the slots of cases that were never dispatched.
func compactResults(results []*evalrun.TestCaseResult) []*evalrun.TestCaseResult {
	compact := make([]*evalrun.TestCaseResult, 0, len(results))
	for _, res := range results {
		if res != nil {
			compact = append(compact, res)
		}
	}
	return compact
}
