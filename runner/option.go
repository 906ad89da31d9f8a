//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"time"

	"golang.org/x/time/rate"
)

// Option configures the runner.
type Option func(*Runner)

// WithConcurrency sets the worker pool size. Values below one are ignored.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithMaxRetries caps how many times a retryable model call is retried after
// its first attempt. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// WithCaseTimeout sets the base per-test-case budget. Scorers implementing
// scorer.TimeoutHint can stretch it for the whole run.
func WithCaseTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.caseTimeout = d
		}
	}
}

// WithBackoff sets the first retry delay and the cap it doubles toward.
func WithBackoff(base, max time.Duration) Option {
	return func(r *Runner) {
		if base > 0 {
			r.baseBackoff = base
		}
		if max > 0 {
			r.maxBackoff = max
		}
	}
}

// WithRateLimit throttles model calls to perSecond with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(r *Runner) {
		if perSecond > 0 && burst > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithPricer sets the cost estimator applied to each model response.
func WithPricer(p Pricer) Option {
	return func(r *Runner) {
		if p != nil {
			r.pricer = p
		}
	}
}

// WithNow sets the clock used for result timestamps.
func WithNow(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}
