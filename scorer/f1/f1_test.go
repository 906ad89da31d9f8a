//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package f1

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// TestScore_KnownConfusionMatrix verifies the hand-computed reference case:
// TP=4, FP=2, FN=1, so precision=4/6, recall=4/5 and F1 = 2PR/(P+R) = 0.7273.
func TestScore_KnownConfusionMatrix(t *testing.T) {
	s := New()
	res, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []int{1, 1, 1, 1, 0, 1, 1, 0, 0, 0},
		Expected: []int{1, 1, 1, 1, 1, 0, 0, 0, 0, 0},
	})
	require.NoError(t, err)

	assert.Equal(t, 4.0, res.Breakdown["true_positives"])
	assert.Equal(t, 2.0, res.Breakdown["false_positives"])
	assert.Equal(t, 3.0, res.Breakdown["true_negatives"])
	assert.Equal(t, 1.0, res.Breakdown["false_negatives"])
	assert.InDelta(t, 4.0/6.0, res.Breakdown["precision"], 1e-12)
	assert.InDelta(t, 4.0/5.0, res.Breakdown["recall"], 1e-12)
	assert.InDelta(t, 0.7273, res.Score, 1e-4)
	assert.InDelta(t, 0.7, res.Breakdown["accuracy"], 1e-12)
	assert.True(t, res.Passed)
}

// TestScore_AllNegativesIsPerfect verifies the degenerate case with no
// predicted and no actual positives scores 1.0 instead of NaN.
func TestScore_AllNegativesIsPerfect(t *testing.T) {
	s := New()
	res, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []int{0, 0, 0},
		Expected: []int{0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
	assert.True(t, res.Passed)
}

// TestScore_ZeroDenominators verifies zero-precision and zero-recall cases
// stay defined.
func TestScore_ZeroDenominators(t *testing.T) {
	s := New()

	// No predicted positives but actual positives exist: recall 0, F1 0.
	res, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []int{0, 0, 0},
		Expected: []int{1, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
	assert.False(t, res.Passed)

	// Predicted positives but no actual positives: precision 0, F1 0.
	res, err = s.Score(context.Background(), &scorer.Input{
		Actual:   []int{1, 1, 0},
		Expected: []int{0, 0, 0},
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Score)
}

// TestScore_LengthMismatch verifies unequal sequences error out.
func TestScore_LengthMismatch(t *testing.T) {
	s := New()
	_, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []int{1, 0},
		Expected: []int{1, 0, 1},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

// TestScore_EmptySequences verifies empty input errors out.
func TestScore_EmptySequences(t *testing.T) {
	s := New()
	_, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []int{},
		Expected: []int{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

// TestScore_MixedInputForms verifies decoded []any and bool sequences are
// accepted.
func TestScore_MixedInputForms(t *testing.T) {
	s := New()
	res, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []any{1.0, 0.0, 1.0},
		Expected: []bool{true, false, true},
	})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Score)
}

// TestScore_NonBinaryValue verifies non-binary labels are rejected.
func TestScore_NonBinaryValue(t *testing.T) {
	s := New()
	_, err := s.Score(context.Background(), &scorer.Input{
		Actual:   []int{1, 2},
		Expected: []int{1, 0},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not binary")
}

// TestScore_MinScoreThreshold verifies the configurable pass threshold.
func TestScore_MinScoreThreshold(t *testing.T) {
	strict := New(WithMinScore(0.8))
	res, err := strict.Score(context.Background(), &scorer.Input{
		Actual:   []int{1, 1, 0, 0, 1, 0, 1, 0, 0, 1},
		Expected: []int{1, 1, 1, 0, 0, 0, 1, 0, 0, 0},
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7273, res.Score, 1e-4)
	assert.False(t, res.Passed)
}
