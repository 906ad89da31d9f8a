//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package judge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
	"trpc.group/trpc-go/trpc-eval-go/model"
	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// fakeProvider answers with a canned verdict and records the last request.
type fakeProvider struct {
	text    string
	err     error
	lastReq *model.Request
}

func (f *fakeProvider) Name() string { return "judge-model-1" }

func (f *fakeProvider) Complete(_ context.Context, req *model.Request) (*model.Response, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &model.Response{
		Text:  f.text,
		Usage: model.Usage{PromptTokens: 100, CompletionTokens: 30, TotalTokens: 130},
	}, nil
}

// TestScore_WeightedRubric verifies weight-normalized aggregation and the
// per-criterion breakdown.
func TestScore_WeightedRubric(t *testing.T) {
	p := &fakeProvider{text: `{"scores": {"accuracy": 0.9, "style": 0.6}, "reasoning": "close but informal"}`}
	s := New(p, WithCriteria(
		Criterion{Name: "accuracy", Weight: 2},
		Criterion{Name: "style", Weight: 1},
	))

	res, err := s.Score(context.Background(), &scorer.Input{
		Actual:   "Paris is France's capital.",
		Expected: "The capital of France is Paris.",
	})
	require.NoError(t, err)

	// (0.9*2 + 0.6*1) / 3 = 0.8.
	assert.InDelta(t, 0.8, res.Score, 1e-12)
	assert.True(t, res.Passed)
	assert.Equal(t, "close but informal", res.Reason)
	assert.InDelta(t, 0.9, res.Breakdown["accuracy"], 1e-12)
	assert.InDelta(t, 0.6, res.Breakdown["style"], 1e-12)
	assert.Equal(t, "judge-model-1", res.Metadata["judge_model"])
	assert.Equal(t, 100, res.Metadata["judge_prompt_tokens"])
}

// TestScore_TemperaturePinned verifies the judge always runs cold.
func TestScore_TemperaturePinned(t *testing.T) {
	p := &fakeProvider{text: `{"scores": {"correctness": 1}, "reasoning": "exact"}`}
	s := New(p)

	_, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "a"})
	require.NoError(t, err)

	require.NotNil(t, p.lastReq.Temperature)
	assert.Zero(t, *p.lastReq.Temperature)
	require.NotNil(t, p.lastReq.MaxTokens)
	assert.Equal(t, defaultMaxToken, *p.lastReq.MaxTokens)
}

// TestScore_PromptContents verifies the rubric, question, reference and
// candidate all reach the judge.
func TestScore_PromptContents(t *testing.T) {
	p := &fakeProvider{text: `{"scores": {"accuracy": 1}, "reasoning": "ok"}`}
	s := New(p, WithCriteria(Criterion{Name: "accuracy", Description: "factual equivalence", Weight: 1}))

	_, err := s.Score(context.Background(), &scorer.Input{
		Actual:   "four",
		Expected: "4",
		TestCase: &dataset.TestCase{ID: "tc-1", Input: "What is 2+2?"},
	})
	require.NoError(t, err)

	require.Len(t, p.lastReq.Messages, 2)
	assert.Equal(t, model.RoleSystem, p.lastReq.Messages[0].Role)
	user := p.lastReq.Messages[1].Content
	assert.Contains(t, user, "accuracy (weight 1): factual equivalence")
	assert.Contains(t, user, "What is 2+2?")
	assert.Contains(t, user, "Reference answer:\n4")
	assert.Contains(t, user, "Candidate answer:\nfour")
}

// TestScore_FencedVerdict verifies markdown fences and surrounding prose are
// tolerated.
func TestScore_FencedVerdict(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"json fence", "```json\n{\"scores\": {\"correctness\": 0.5}, \"reasoning\": \"half\"}\n```"},
		{"bare fence", "```\n{\"scores\": {\"correctness\": 0.5}, \"reasoning\": \"half\"}\n```"},
		{"prose around object", "Here is my verdict: {\"scores\": {\"correctness\": 0.5}, \"reasoning\": \"half\"} Thanks!"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{text: tt.text}
			s := New(p)
			res, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
			require.NoError(t, err)
			assert.InDelta(t, 0.5, res.Score, 1e-12)
			assert.False(t, res.Passed)
		})
	}
}

// TestScore_MalformedVerdict verifies decode failures surface as errors.
func TestScore_MalformedVerdict(t *testing.T) {
	for _, text := range []string{
		"I think it looks good overall.",
		`{"scores": "not a map"}`,
		`{"reasoning": "no scores"}`,
	} {
		p := &fakeProvider{text: text}
		s := New(p)
		_, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
		require.Error(t, err, "text %q", text)
	}
}

// TestScore_MissingCriterion verifies a verdict that skips a rubric entry is
// rejected.
func TestScore_MissingCriterion(t *testing.T) {
	p := &fakeProvider{text: `{"scores": {"accuracy": 1}, "reasoning": "ok"}`}
	s := New(p, WithCriteria(
		Criterion{Name: "accuracy", Weight: 1},
		Criterion{Name: "style", Weight: 1},
	))
	_, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `omits criterion "style"`)
}

// TestScore_OutOfRangeClamped verifies judge grades outside [0,1] clamp.
func TestScore_OutOfRangeClamped(t *testing.T) {
	p := &fakeProvider{text: `{"scores": {"correctness": 1.7}, "reasoning": "enthusiastic"}`}
	s := New(p)
	res, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "a"})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Score, 1e-12)
	assert.InDelta(t, 1.0, res.Breakdown["correctness"], 1e-12)
}

// TestScore_InvalidRubric verifies rubric validation.
func TestScore_InvalidRubric(t *testing.T) {
	p := &fakeProvider{text: `{"scores": {"x": 1}}`}

	s := New(p, WithCriteria(Criterion{Name: "x", Weight: -1}))
	_, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "non-positive weight")

	s = New(p, WithCriteria(Criterion{Weight: 1}))
	_, err = s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty name")
}

// TestScore_ProviderError verifies provider failures propagate wrapped.
func TestScore_ProviderError(t *testing.T) {
	cause := model.NewError(model.KindRateLimited, "slow down", nil)
	p := &fakeProvider{err: cause}
	s := New(p)
	_, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
	require.Error(t, err)
	assert.True(t, model.Retryable(err))
}

// TestScoreTimeout verifies the stretched per-case budget hint.
func TestScoreTimeout(t *testing.T) {
	s := New(&fakeProvider{})
	assert.Equal(t, 120*time.Second, s.ScoreTimeout())

	custom := New(&fakeProvider{}, WithScoreTimeout(3*time.Minute))
	assert.Equal(t, 3*time.Minute, custom.ScoreTimeout())
}

// TestExtractJSON verifies extraction corner cases.
func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, extractJSON("noise {\"a\":1} noise"))
	assert.Equal(t, "", extractJSON("no json here"))
	assert.Equal(t, "", extractJSON("} reversed {"))
}

// TestScore_CanceledContext verifies cooperative cancellation.
func TestScore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(&fakeProvider{}).Score(ctx, &scorer.Input{Actual: "a", Expected: "b"})
	require.ErrorIs(t, err, context.Canceled)
}

// TestScore_NilProvider verifies the configuration guard.
func TestScore_NilProvider(t *testing.T) {
	s := New(nil)
	_, err := s.Score(context.Background(), &scorer.Input{Actual: "a", Expected: "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider")
}
