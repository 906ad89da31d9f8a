//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package judge scores outputs with a judge model against a weighted rubric.
// The judge always runs at temperature zero and must answer with a strict
// JSON verdict.
package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/model"
	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// Name is the default registry name of this scorer.
const Name = "llm_judge"

const (
	defaultThreshold = 0.7
	// defaultTimeout stretches the per-case budget, judge calls pay for a
	// full extra model round trip.
	defaultTimeout  = 120 * time.Second
	defaultMaxToken = 1024
)

var (
	_ scorer.Scorer      = (*Scorer)(nil)
	_ scorer.TimeoutHint = (*Scorer)(nil)
)

// Criterion is one rubric dimension with a relative weight.
type Criterion struct {
	// Name identifies the criterion in the verdict.
	Name string `json:"name"`
	// Description tells the judge what to look for.
	Description string `json:"description,omitempty"`
	// Weight is the relative importance, normalized over the rubric sum.
	Weight float64 `json:"weight"`
}

// verdict is the JSON answer the judge must produce.
type verdict struct {
	Scores    map[string]float64 `json:"scores"`
	Reasoning string             `json:"reasoning"`
}

// Scorer asks a judge model to grade the candidate answer per criterion and
// combines the grades into a weight-normalized score.
type Scorer struct {
	name      string
	provider  model.Provider
	criteria  []Criterion
	threshold float64
	timeout   time.Duration
	maxTokens int
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

// WithCriteria replaces the rubric.
func WithCriteria(criteria ...Criterion) Option {
	return func(s *Scorer) {
		if len(criteria) > 0 {
			s.criteria = criteria
		}
	}
}

// WithThreshold sets the pass threshold, clamped to [0,1].
func WithThreshold(threshold float64) Option {
	return func(s *Scorer) {
		s.threshold = scorer.Clamp01(threshold)
	}
}

// WithScoreTimeout overrides the per-case budget hint.
func WithScoreTimeout(d time.Duration) Option {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMaxTokens caps the verdict length.
func WithMaxTokens(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// New creates a judge scorer. The default rubric is a single full-weight
// correctness criterion.
func New(provider model.Provider, opt ...Option) *Scorer {
	s := &Scorer{
		name:     Name,
		provider: provider,
		criteria: []Criterion{
			{Name: "correctness", Description: "The answer is factually and semantically equivalent to the reference.", Weight: 1},
		},
		threshold: defaultThreshold,
		timeout:   defaultTimeout,
		maxTokens: defaultMaxToken,
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

// ScoreTimeout implements scorer.TimeoutHint.
func (s *Scorer) ScoreTimeout() time.Duration {
	return s.timeout
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
		return nil, errors.New("judge: nil input")
	}
	if s.provider == nil {
		return nil, errors.New("judge: no provider configured")
	}
	totalWeight := 0.0
	for _, c := range s.criteria {
		if c.Name == "" {
			return nil, errors.New("judge: criterion with empty name")
		}
		if c.Weight <= 0 {
			return nil, fmt.Errorf("judge: criterion %q has non-positive weight %v", c.Name, c.Weight)
		}
		totalWeight += c.Weight
	}
	if totalWeight == 0 {
		return nil, errors.New("judge: empty rubric")
	}

	prompt, err := s.buildPrompt(in)
	if err != nil {
		return nil, err
	}

	// Determinism requires the judge to run cold no matter how the run is
	// configured.
	rsp, err := s.provider.Complete(ctx, &model.Request{
		Messages:    prompt,
		Temperature: model.Float64(0),
		MaxTokens:   model.Int(s.maxTokens),
	})
	if err != nil {
		return nil, fmt.Errorf("judge: complete: %w", err)
	}

	v, err := parseVerdict(rsp.Text)
	if err != nil {
		return nil, fmt.Errorf("judge: %w", err)
	}

	breakdown := make(map[string]float64, len(s.criteria))
	weighted := 0.0
	for _, c := range s.criteria {
		raw, ok := v.Scores[c.Name]
		if !ok {
			return nil, fmt.Errorf("judge: verdict omits criterion %q", c.Name)
		}
		clamped := scorer.Clamp01(raw)
		breakdown[c.Name] = clamped
		weighted += clamped * c.Weight
	}
	score := scorer.Clamp01(weighted / totalWeight)

	return &scorer.Result{
		ScorerName: s.name,
		Score:      score,
		Passed:     score >= s.threshold,
		Reason:     v.Reasoning,
		Breakdown:  breakdown,
		Metadata: map[string]any{
			"judge_model":             s.provider.Name(),
			"judge_prompt_tokens":     rsp.Usage.PromptTokens,
			"judge_completion_tokens": rsp.Usage.CompletionTokens,
		},
	}, nil
}

func (s *Scorer) buildPrompt(in *scorer.Input) ([]model.Message, error) {
	actualText, err := scorer.Text(in.Actual)
	if err != nil {
		return nil, fmt.Errorf("judge: coerce actual: %w", err)
	}
	expectedText, err := scorer.Text(in.Expected)
	if err != nil {
		return nil, fmt.Errorf("judge: coerce expected: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("Grade the candidate answer against the reference answer on each criterion, from 0.0 (worst) to 1.0 (best).\n\nCriteria:\n")
	for _, c := range s.criteria {
		fmt.Fprintf(&sb, "- %s (weight %g)", c.Name, c.Weight)
		if c.Description != "" {
			fmt.Fprintf(&sb, ": %s", c.Description)
		}
		sb.WriteString("\n")
	}
	if in.TestCase != nil && in.TestCase.Input != nil {
		question, err := scorer.Text(in.TestCase.Input)
		if err != nil {
			return nil, fmt.Errorf("judge: coerce question: %w", err)
		}
		fmt.Fprintf(&sb, "\nQuestion:\n%s\n", question)
	}
	fmt.Fprintf(&sb, "\nReference answer:\n%s\n\nCandidate answer:\n%s\n", expectedText, actualText)

	system := "You are an impartial evaluation judge. " +
		"Respond with only a JSON object of the form " +
		`{"scores": {"<criterion>": <number>, ...}, "reasoning": "<short explanation>"}. ` +
		"Score every listed criterion. Do not include ```json or ``` in the beginning or end of the response."

	return []model.Message{
		model.NewSystemMessage(system),
		model.NewUserMessage(sb.String()),
	}, nil
}

// parseVerdict decodes the judge answer, tolerating markdown code fences and
// surrounding prose.
func parseVerdict(text string) (*verdict, error) {
	cleaned := extractJSON(text)
	if cleaned == "" {
		return nil, fmt.Errorf("verdict contains no JSON object: %q", truncate(text, 120))
	}
	var v verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("decode verdict: %w", err)
	}
	if len(v.Scores) == 0 {
		return nil, errors.New("verdict carries no scores")
	}
	return &v, nil
}

// extractJSON pulls a JSON object out of a model answer, trying fenced code
// blocks first and falling back to the outermost brace pair.
func extractJSON(response string) string {
	startMarkers := []string{"```json\n", "```json\r\n", "```\n", "```\r\n"}
	const endMarker = "```"

	for _, startMarker := range startMarkers {
		startIdx := strings.Index(response, startMarker)
		if startIdx == -1 {
			continue
		}
		contentStart := startIdx + len(startMarker)
		remaining := response[contentStart:]
		endIdx := strings.Index(remaining, endMarker)
		if endIdx == -1 {
			continue
		}
		return strings.TrimSpace(remaining[:endIdx])
	}

	startIdx := strings.Index(response, "{")
	endIdx := strings.LastIndex(response, "}")
	if startIdx != -1 && endIdx > startIdx {
		return response[startIdx : endIdx+1]
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
