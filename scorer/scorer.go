//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package scorer defines the scoring contract shared by all scoring algorithms.
package scorer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
)

// Input carries the values a scorer compares.
type Input struct {
	// Actual is the model output under evaluation.
	Actual any `json:"actual"`
	// Expected is the reference value from the test case.
	Expected any `json:"expected,omitempty"`
	// TestCase optionally carries the source case; judge scorers read its Input.
	TestCase *dataset.TestCase `json:"test_case,omitempty"`
}

// Result is the outcome of one scorer on one test case.
type Result struct {
	// ScorerName identifies the scorer that produced this result.
	ScorerName string `json:"scorer_name"`
	// Score is normalized to [0,1].
	Score float64 `json:"score"`
	// Passed reports whether the scorer-specific threshold was met.
	Passed bool `json:"passed"`
	// Reason is a human-readable explanation.
	Reason string `json:"reason,omitempty"`
	// Breakdown maps sub-metric names to values.
	Breakdown map[string]float64 `json:"breakdown,omitempty"`
	// Metadata carries opaque scorer-specific details.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Scorer scores a model output against an expected value.
// Implementations are pure: no side effects beyond optional read-through
// caching, deterministic given identical cache state and configuration.
type Scorer interface {
	// Name returns the registered scorer name.
	Name() string
	// Score evaluates the input and returns a normalized result.
	Score(ctx context.Context, in *Input) (*Result, error)
}

// TimeoutHint is implemented by scorers that need more than the default
// per-test-case budget, such as judge-model scorers.
type TimeoutHint interface {
	// ScoreTimeout returns the per-case budget this scorer needs.
	ScoreTimeout() time.Duration
}

// Clamp01 clamps a raw score into [0,1]. Scorers never return values outside
// this range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Text coerces a value to text for similarity and judge scoring. Strings
// pass through, everything else is rendered as compact JSON.
func Text(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("render %T as text: %w", v, err)
		}
		return string(data), nil
	}
}

// Binary coerces a value to a binary label sequence. Accepted element forms
// are 0/1 integers, floats and bools, in typed or []any slices.
func Binary(v any) ([]int, error) {
	toBit := func(e any) (int, error) {
		switch n := e.(type) {
		case bool:
			if n {
				return 1, nil
			}
			return 0, nil
		case int:
			return bitFromInt(int64(n))
		case int64:
			return bitFromInt(n)
		case float64:
			if n == 0 || n == 1 {
				return int(n), nil
			}
			return 0, fmt.Errorf("value %v is not binary", n)
		case json.Number:
			f, err := n.Float64()
			if err != nil {
				return 0, fmt.Errorf("value %v is not numeric", n)
			}
			if f == 0 || f == 1 {
				return int(f), nil
			}
			return 0, fmt.Errorf("value %v is not binary", n)
		default:
			return 0, fmt.Errorf("unsupported label type %T", e)
		}
	}
	switch s := v.(type) {
	case []int:
		out := make([]int, len(s))
		for i, e := range s {
			bit, err := bitFromInt(int64(e))
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = bit
		}
		return out, nil
	case []bool:
		out := make([]int, len(s))
		for i, e := range s {
			if e {
				out[i] = 1
			}
		}
		return out, nil
	case []float64:
		out := make([]int, len(s))
		for i, e := range s {
			bit, err := toBit(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = bit
		}
		return out, nil
	case []any:
		out := make([]int, len(s))
		for i, e := range s {
			bit, err := toBit(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out[i] = bit
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported label sequence type %T", v)
	}
}

func bitFromInt(n int64) (int, error) {
	if n == 0 || n == 1 {
		return int(n), nil
	}
	return 0, fmt.Errorf("value %d is not binary", n)
}

// Strings coerces a value to a string slice for retrieval scoring.
func Strings(v any) ([]string, error) {
	switch s := v.(type) {
	case nil:
		return nil, nil
	case []string:
		return s, nil
	case []any:
		out := make([]string, len(s))
		for i, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, fmt.Errorf("element %d: expected string, got %T", i, e)
			}
			out[i] = str
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported id sequence type %T", v)
	}
}
