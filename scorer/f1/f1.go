//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package f1 provides precision/recall/F1 scoring over binary label sequences.
package f1

import (
	"context"
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// Name is the default registry name of this scorer.
const Name = "f1"

// defaultMinScore is the pass threshold applied when none is configured.
const defaultMinScore = 0.5

var _ scorer.Scorer = (*Scorer)(nil)

// Scorer computes the confusion matrix of binary predictions (actual)
// against ground-truth labels (expected) and derives precision, recall,
// F1 and accuracy. The F1 value is the score.
type Scorer struct {
	name     string
	minScore float64
}

// Option configures the F1 scorer.
type Option func(*Scorer)

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(s *Scorer) {
		if name != "" {
			s.name = name
		}
	}
}

// WithMinScore sets the minimum F1 value required to pass.
func WithMinScore(min float64) Option {
	return func(s *Scorer) {
		s.minScore = scorer.Clamp01(min)
	}
}

// New creates an F1 scorer.
func New(opt ...Option) *Scorer {
	s := &Scorer{
		name:     Name,
		minScore: defaultMinScore,
	}
	for _, o := range opt {
		o(s)
	}
	return s
}

// Name implements scorer.Scorer.
func (s *Scorer) Name() string {
	return s.name
}

// Score implements scorer.Scorer.
func (s *Scorer) Score(ctx context.Context, in *scorer.Input) (*scorer.Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	predictions, err := scorer.Binary(in.Actual)
	if err != nil {
		return nil, fmt.Errorf("parse predictions: %w", err)
	}
	labels, err := scorer.Binary(in.Expected)
	if err != nil {
		return nil, fmt.Errorf("parse labels: %w", err)
	}
	if len(predictions) != len(labels) {
		return nil, fmt.Errorf("predictions length %d does not match labels length %d", len(predictions), len(labels))
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label sequence is empty")
	}

	var tp, fp, tn, fn int
	for i := range predictions {
		switch {
		case predictions[i] == 1 && labels[i] == 1:
			tp++
		case predictions[i] == 1 && labels[i] == 0:
			fp++
		case predictions[i] == 0 && labels[i] == 0:
			tn++
		default:
			fn++
		}
	}

	precision := ratio(tp, tp+fp)
	recall := ratio(tp, tp+fn)
	accuracy := ratio(tp+tn, len(labels))
	f1 := fMeasure(precision, recall)
	// No predicted and no actual positives is a perfect negative case, not
	// an undefined one.
	if tp+fp == 0 && tp+fn == 0 {
		precision, recall, f1 = 1.0, 1.0, 1.0
	}
	f1 = scorer.Clamp01(f1)

	return &scorer.Result{
		ScorerName: s.name,
		Score:      f1,
		Passed:     f1 >= s.minScore,
		Reason: fmt.Sprintf("f1=%.4f precision=%.4f recall=%.4f accuracy=%.4f (tp=%d fp=%d tn=%d fn=%d)",
			f1, precision, recall, accuracy, tp, fp, tn, fn),
		Breakdown: map[string]float64{
			"true_positives":  float64(tp),
			"false_positives": float64(fp),
			"true_negatives":  float64(tn),
			"false_negatives": float64(fn),
			"precision":       precision,
			"recall":          recall,
			"accuracy":        accuracy,
		},
	}, nil
}

// ratio divides with a zero-denominator guard.
func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// fMeasure computes the harmonic mean of precision and recall, returning 0
// when both are 0.
func fMeasure(precision, recall float64) float64 {
	if precision+recall == 0 {
		return 0
	}
	return 2 * precision * recall / (precision + recall)
}
