//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package semantic scores outputs by embedding cosine similarity, with a
// per-instance read-through vector cache keyed by model and text.
package semantic

import (
	"context"
	"errors"
	"fmt"
	"math"

	"trpc.group/trpc-go/trpc-eval-go/embedding"
	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// Name is the default registry name of this scorer.
const Name = "semantic_similarity"

const (
	defaultThreshold = 0.85
	// defaultChunkThreshold is the rune count above which a text is split
	// into sentences and mean-pooled instead of embedded whole.
	defaultChunkThreshold = 4000
)

var _ scorer.Scorer = (*Scorer)(nil)

// Scorer embeds both texts and compares them by cosine similarity. Negative
// similarities clamp to zero so scores stay in [0,1].
type Scorer struct {
	name           string
	embedder       embedding.Embedder
	threshold      float64
	modelID        string
	chunkThreshold int
	cache          *vectorCache
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

// WithThreshold sets the pass threshold, clamped to [0,1].
func WithThreshold(threshold float64) Option {
	return func(s *Scorer) {
		s.threshold = scorer.Clamp01(threshold)
	}
}

// WithModelID tags cache keys with the embedding model identity, so vectors
// from different models never collide.
func WithModelID(id string) Option {
	return func(s *Scorer) {
		if id != "" {
			s.modelID = id
		}
	}
}

// WithChunkThreshold sets the rune count above which texts are split into
// sentences and mean-pooled. Non-positive values are ignored.
func WithChunkThreshold(runes int) Option {
	return func(s *Scorer) {
		if runes > 0 {
			s.chunkThreshold = runes
		}
	}
}

// WithoutCache disables the read-through vector cache.
func WithoutCache() Option {
	return func(s *Scorer) {
		s.cache = nil
	}
}

// New creates a semantic similarity scorer backed by the given embedder.
// When the embedder exposes a Model() accessor it namespaces the cache.
func New(embedder embedding.Embedder, opt ...Option) *Scorer {
	s := &Scorer{
		name:           Name,
		embedder:       embedder,
		threshold:      defaultThreshold,
		modelID:        "default",
		chunkThreshold: defaultChunkThreshold,
		cache:          newVectorCache(),
	}
	if m, ok := embedder.(interface{ Model() string }); ok {
		if id := m.Model(); id != "" {
			s.modelID = id
		}
	}
	for _, o := range opt {
		if o != nil {
			o(s)
		}
	}
	return s
}

// Name implements scorer.Scorer.
func (s *Scorer) Name() string {
	return s.name
}

// CacheEnabled reports whether the vector cache is active.
func (s *Scorer) CacheEnabled() bool {
	return s.cache != nil
}

// CacheSize returns the number of cached vectors.
func (s *Scorer) CacheSize() int {
	if s.cache == nil {
		return 0
	}
	return s.cache.size()
}

// CacheStats returns cumulative hit and miss counts.
func (s *Scorer) CacheStats() (hits, misses int64) {
	if s.cache == nil {
		return 0, 0
	}
	return s.cache.stats()
}

// Score implements scorer.Scorer.
func (s *Scorer) Score(ctx context.Context, in *scorer.Input) (*scorer.Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errors.New("semantic: nil input")
	}
	if s.embedder == nil {
		return nil, errors.New("semantic: no embedder configured")
	}

	actualText, err := scorer.Text(in.Actual)
	if err != nil {
		return nil, fmt.Errorf("semantic: coerce actual: %w", err)
	}
	expectedText, err := scorer.Text(in.Expected)
	if err != nil {
		return nil, fmt.Errorf("semantic: coerce expected: %w", err)
	}

	if actualText == "" && expectedText == "" {
		return s.result(1.0, "both texts empty"), nil
	}
	if actualText == "" || expectedText == "" {
		return s.result(0.0, "one text empty"), nil
	}

	actualVec, err := s.embed(ctx, actualText)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed actual: %w", err)
	}
	expectedVec, err := s.embed(ctx, expectedText)
	if err != nil {
		return nil, fmt.Errorf("semantic: embed expected: %w", err)
	}

	similarity := scorer.Clamp01(cosineSimilarity(actualVec, expectedVec))
	reason := fmt.Sprintf("cosine similarity %.4f against threshold %.2f", similarity, s.threshold)
	return s.result(similarity, reason), nil
}

func (s *Scorer) result(score float64, reason string) *scorer.Result {
	return &scorer.Result{
		ScorerName: s.name,
		Score:      score,
		Passed:     score >= s.threshold,
		Reason:     reason,
		Breakdown: map[string]float64{
			"similarity": score,
			"threshold":  s.threshold,
		},
	}
}

// embed returns the vector for text, consulting the cache first. Texts over
// the chunk threshold are split into sentences and mean-pooled.
func (s *Scorer) embed(ctx context.Context, text string) ([]float64, error) {
	if s.cache != nil {
		if vec, ok := s.cache.get(s.modelID, text); ok {
			return vec, nil
		}
	}

	vec, err := s.embedUncached(ctx, text)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.put(s.modelID, text, vec)
	}
	return vec, nil
}

func (s *Scorer) embedUncached(ctx context.Context, text string) ([]float64, error) {
	if len([]rune(text)) <= s.chunkThreshold {
		return s.embedder.GetEmbedding(ctx, text)
	}

	parts, err := splitSentences(text)
	if err != nil || len(parts) <= 1 {
		// Fall back to embedding the whole text when splitting yields
		// nothing useful.
		return s.embedder.GetEmbedding(ctx, text)
	}

	return s.meanPool(ctx, parts)
}

// meanPool embeds each part and averages the vectors dimension-wise.
func (s *Scorer) meanPool(ctx context.Context, parts []string) ([]float64, error) {
	var pooled []float64
	count := 0
	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := s.embedder.GetEmbedding(ctx, part)
		if err != nil {
			return nil, err
		}
		if len(vec) == 0 {
			continue
		}
		if pooled == nil {
			pooled = make([]float64, len(vec))
		}
		if len(vec) != len(pooled) {
			return nil, fmt.Errorf("semantic: embedding dimension changed from %d to %d", len(pooled), len(vec))
		}
		for i, v := range vec {
			pooled[i] += v
		}
		count++
	}
	if count == 0 {
		return nil, errors.New("semantic: no embeddable sentences")
	}
	for i := range pooled {
		pooled[i] /= float64(count)
	}
	return pooled, nil
}

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
