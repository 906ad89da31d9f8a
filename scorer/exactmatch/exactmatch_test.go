//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package exactmatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

func score(t *testing.T, s *Scorer, actual, expected any) *scorer.Result {
	t.Helper()
	res, err := s.Score(context.Background(), &scorer.Input{Actual: actual, Expected: expected})
	require.NoError(t, err)
	return res
}

// TestScore_Idempotent verifies that scoring (A, A) always passes.
func TestScore_Idempotent(t *testing.T) {
	s := New()
	values := []any{
		"hello",
		42,
		map[string]any{"a": 1, "b": []any{"x", "y"}},
		[]any{1.0, 2.0, 3.0},
		nil,
	}
	for _, v := range values {
		res := score(t, s, v, v)
		assert.True(t, res.Passed)
		assert.Equal(t, 1.0, res.Score)
	}
}

// TestScore_BothEmpty verifies empty values match only each other.
func TestScore_BothEmpty(t *testing.T) {
	s := New()
	assert.True(t, score(t, s, "", "").Passed)
	assert.True(t, score(t, s, nil, nil).Passed)
	assert.False(t, score(t, s, "", "x").Passed)
	assert.False(t, score(t, s, nil, "x").Passed)
}

// TestScore_NumericNormalization verifies ints and floats from different
// decoders compare equal.
func TestScore_NumericNormalization(t *testing.T) {
	s := New()
	res := score(t, s, map[string]any{"n": 2}, map[string]any{"n": 2.0})
	assert.True(t, res.Passed)
}

// TestScore_FirstDifferingPath verifies the reason names the first
// differing path in sorted key order.
func TestScore_FirstDifferingPath(t *testing.T) {
	s := New()
	actual := map[string]any{"alpha": 1, "beta": map[string]any{"deep": "x"}, "gamma": 3}
	expected := map[string]any{"alpha": 1, "beta": map[string]any{"deep": "y"}, "gamma": 4}
	res := score(t, s, actual, expected)
	require.False(t, res.Passed)
	assert.Equal(t, 0.0, res.Score)
	assert.Contains(t, res.Reason, "mismatch at beta.deep")
}

// TestScore_MissingKey verifies a key present on one side only is a mismatch.
func TestScore_MissingKey(t *testing.T) {
	s := New()
	res := score(t, s, map[string]any{"a": 1, "extra": true}, map[string]any{"a": 1})
	require.False(t, res.Passed)
	assert.Contains(t, res.Reason, "extra")
}

// TestScore_IgnorePaths verifies values at ignored paths never affect the
// outcome.
func TestScore_IgnorePaths(t *testing.T) {
	s := New(WithIgnorePaths("meta.timestamp", "trace_id"))
	actual := map[string]any{
		"answer":   "Paris",
		"trace_id": "abc",
		"meta":     map[string]any{"timestamp": "2026-01-01T00:00:00Z"},
	}
	expected := map[string]any{
		"answer":   "Paris",
		"trace_id": "def",
		"meta":     map[string]any{"timestamp": "2026-02-02T00:00:00Z"},
	}
	assert.True(t, score(t, s, actual, expected).Passed)

	// An ignored path also tolerates the key being absent on one side.
	delete(actual, "trace_id")
	assert.True(t, score(t, s, actual, expected).Passed)
}

// TestScore_SequenceOrder verifies ordered comparison by default and
// multiset comparison with WithIgnoreKeyOrder.
func TestScore_SequenceOrder(t *testing.T) {
	ordered := New()
	res := score(t, ordered, []any{"a", "b"}, []any{"b", "a"})
	require.False(t, res.Passed)
	assert.Contains(t, res.Reason, "[0]")

	unordered := New(WithIgnoreKeyOrder(true))
	assert.True(t, score(t, unordered, []any{"a", "b"}, []any{"b", "a"}).Passed)
	assert.False(t, score(t, unordered, []any{"a", "a"}, []any{"b", "a"}).Passed)
}

// TestScore_LengthMismatch verifies differing sequence lengths report the
// first out-of-range index.
func TestScore_LengthMismatch(t *testing.T) {
	s := New()
	res := score(t, s, []any{"a"}, []any{"a", "b"})
	require.False(t, res.Passed)
	assert.Contains(t, res.Reason, "[1]")
}

// TestScore_TypeMismatch verifies differing shapes mismatch at their path.
func TestScore_TypeMismatch(t *testing.T) {
	s := New()
	res := score(t, s, map[string]any{"v": "1"}, map[string]any{"v": 1})
	require.False(t, res.Passed)
	assert.Contains(t, res.Reason, "mismatch at v")

	res = score(t, s, "scalar", map[string]any{"v": 1})
	require.False(t, res.Passed)
	assert.Contains(t, res.Reason, "(root)")
}

// TestScore_NilContext verifies that a nil context returns an error.
func TestScore_NilContext(t *testing.T) {
	var nilCtx context.Context
	_, err := New().Score(nilCtx, &scorer.Input{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context is nil")
}

// TestName verifies default and overridden names.
func TestName(t *testing.T) {
	assert.Equal(t, Name, New().Name())
	assert.Equal(t, "strict", New(WithName("strict")).Name())
}
