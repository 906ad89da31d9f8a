//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package recallatk scores retrieval quality as Recall@K: the fraction of
// relevant ids found within the first K retrieved ids.
package recallatk

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// Name is the default registry name of this scorer.
const Name = "recall_at_k"

const (
	defaultK         = 5
	defaultMinRecall = 0.8
)

// Preset names for common retrieval configurations.
const (
	// PresetQuality checks the head of the ranking (K=5, min recall 0.8).
	PresetQuality = "retrieval-quality"
	// PresetBroad checks a wider window (K=10, min recall 0.6).
	PresetBroad = "retrieval-broad"
)

var _ scorer.Scorer = (*Scorer)(nil)

// Scorer computes Recall@K over an ordered list of retrieved ids against a
// set of relevant ids. Input.Actual holds the retrieved ids in rank order,
// Input.Expected the relevant ids.
type Scorer struct {
	name      string
	k         int
	minRecall float64
}

// Option configures the scorer.
type Option func(*Scorer)

// WithName overrides the registry name.
func WithName(name string) Option {
	return func(s *Scorer) {
		if name != "" {
			s.name = name
		}
	}
}

// WithK sets the ranking cutoff. Non-positive values are ignored.
func WithK(k int) Option {
	return func(s *Scorer) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithMinRecall sets the pass threshold, clamped to [0,1].
func WithMinRecall(min float64) Option {
	return func(s *Scorer) {
		s.minRecall = scorer.Clamp01(min)
	}
}

// New creates a Recall@K scorer. Defaults to K=5 with a 0.8 pass threshold.
func New(opt ...Option) *Scorer {
	s := &Scorer{
		name:      Name,
		k:         defaultK,
		minRecall: defaultMinRecall,
	}
	for _, o := range opt {
		if o != nil {
			o(s)
		}
	}
	return s
}

// NewPreset creates a scorer from a named preset configuration.
func NewPreset(name string) (*Scorer, error) {
	switch name {
	case PresetQuality:
		return New(WithName(PresetQuality), WithK(5), WithMinRecall(0.8)), nil
	case PresetBroad:
		return New(WithName(PresetBroad), WithK(10), WithMinRecall(0.6)), nil
	default:
		return nil, fmt.Errorf("unknown recall preset %q", name)
	}
}

// Name implements scorer.Scorer.
func (s *Scorer) Name() string {
	return s.name
}

// K returns the ranking cutoff.
func (s *Scorer) K() int {
	return s.k
}

// Score implements scorer.Scorer. With zero relevant ids there is nothing to
// miss, so the score is defined as 1.0.
func (s *Scorer) Score(ctx context.Context, in *scorer.Input) (*scorer.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errors.New("recallatk: nil input")
	}
	retrieved, err := scorer.Strings(in.Actual)
	if err != nil {
		return nil, fmt.Errorf("recallatk: coerce retrieved ids: %w", err)
	}
	relevant, err := scorer.Strings(in.Expected)
	if err != nil {
		return nil, fmt.Errorf("recallatk: coerce relevant ids: %w", err)
	}

	relevantSet := make(map[string]struct{}, len(relevant))
	for _, id := range relevant {
		relevantSet[id] = struct{}{}
	}
	total := len(relevantSet)

	cutoff := s.k
	if cutoff > len(retrieved) {
		cutoff = len(retrieved)
	}
	topK := make([]string, cutoff)
	copy(topK, retrieved[:cutoff])

	if total == 0 {
		return &scorer.Result{
			ScorerName: s.name,
			Score:      1.0,
			Passed:     true,
			Reason:     "no relevant ids to retrieve",
			Breakdown: map[string]float64{
				"relevant_in_top_k": 0,
				"total_relevant":    0,
				"k":                 float64(s.k),
			},
			Metadata: map[string]any{
				"retrieved": topK,
				"missed":    []string{},
			},
		}, nil
	}

	found := make(map[string]struct{}, total)
	for _, id := range topK {
		if _, ok := relevantSet[id]; ok {
			found[id] = struct{}{}
		}
	}
	hits := len(found)

	missed := make([]string, 0, total-hits)
	for id := range relevantSet {
		if _, ok := found[id]; !ok {
			missed = append(missed, id)
		}
	}
	sort.Strings(missed)

	recall := scorer.Clamp01(float64(hits) / float64(total))
	return &scorer.Result{
		ScorerName: s.name,
		Score:      recall,
		Passed:     recall >= s.minRecall,
		Reason:     fmt.Sprintf("found %d of %d relevant ids in top %d", hits, total, s.k),
		Breakdown: map[string]float64{
			"relevant_in_top_k": float64(hits),
			"total_relevant":    float64(total),
			"k":                 float64(s.k),
		},
		Metadata: map[string]any{
			"retrieved": topK,
			"missed":    missed,
		},
	}, nil
}
