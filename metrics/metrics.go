//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package metrics aggregates test case results into a run report. Aggregation
// is a pure function: the same results always produce the same report.
package metrics

import (
	"fmt"
	"math"
	"sort"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
)

// Recommendation rule thresholds.
const (
	lowCategoryAccuracy = 0.7
	weakScorerPassRate  = 0.5
	slowAvgLatencyMs    = 5000
	costConcentration   = 0.5
)

// CategoryStats aggregates the cases of one category.
type CategoryStats struct {
	// Total is the number of cases in the category.
	Total int `json:"total"`
	// Passed is the number of passed cases.
	Passed int `json:"passed"`
	// Scored is the number of cases that produced scorer results.
	Scored int `json:"scored"`
	// PassRate is Passed over Total.
	PassRate float64 `json:"pass_rate"`
	// Accuracy is the mean aggregate score of the category's scored cases.
	Accuracy float64 `json:"accuracy"`
	// AvgLatencyMs is the mean latency of the category's scored cases.
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	// AvgCostUSD is the mean cost of the category's cases.
	AvgCostUSD float64 `json:"avg_cost_usd"`
}

// ScorerStats aggregates one scorer across all cases it scored.
type ScorerStats struct {
	// Cases is the number of cases the scorer produced a result for.
	Cases int `json:"cases"`
	// AvgScore is the mean score across those cases.
	AvgScore float64 `json:"avg_score"`
	// PassRate is the share of those cases the scorer passed.
	PassRate float64 `json:"pass_rate"`
}

// Percentiles is the distribution of per-case aggregate scores.
type Percentiles struct {
	P25 float64 `json:"p25"`
	P50 float64 `json:"p50"`
	P75 float64 `json:"p75"`
	P95 float64 `json:"p95"`
}

// Report is the aggregated outcome of one evaluation run.
type Report struct {
	// RunID references the run the report was computed from.
	RunID string `json:"run_id"`
	// TotalCases is the number of case results aggregated.
	TotalCases int `json:"total_cases"`
	// PassedCases is the number of cases whose combined verdict passed.
	PassedCases int `json:"passed_cases"`
	// FailedCases is TotalCases minus PassedCases.
	FailedCases int `json:"failed_cases"`
	// ErroredCases counts cases that never produced a scorable response.
	ErroredCases int `json:"errored_cases"`
	// PassRate is PassedCases over TotalCases.
	PassRate float64 `json:"pass_rate"`
	// Accuracy is the mean aggregate score over scored cases.
	Accuracy float64 `json:"accuracy"`
	// ByCategory breaks the run down per test case category.
	ByCategory map[string]*CategoryStats `json:"by_category,omitempty"`
	// ByScorer breaks the run down per scorer.
	ByScorer map[string]*ScorerStats `json:"by_scorer,omitempty"`
	// ScoreDistribution holds percentiles of per-case aggregate scores.
	ScoreDistribution Percentiles `json:"score_distribution"`
	// AvgLatencyMs is the mean latency over scored cases.
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	// TotalCostUSD is the summed estimated cost of the run.
	TotalCostUSD float64 `json:"total_cost_usd"`
	// TotalPromptTokens sums prompt tokens across cases.
	TotalPromptTokens int `json:"total_prompt_tokens"`
	// TotalCompletionTokens sums completion tokens across cases.
	TotalCompletionTokens int `json:"total_completion_tokens"`
	// Recommendations lists rule-derived follow-ups, in rule order.
	Recommendations []string `json:"recommendations,omitempty"`
}

type categoryAccum struct {
	total     int
	passed    int
	scored    int
	scoreSum  float64
	latencySum int64
	costSum   float64
}

type scorerAccum struct {
	cases    int
	scoreSum float64
	passed   int
}

// Aggregate computes the report for one run's results. It never mutates the
// results and performs no I/O.
func Aggregate(runID string, results []*evalrun.TestCaseResult) *Report {
	report := &Report{RunID: runID, TotalCases: len(results)}
	if len(results) == 0 {
		return report
	}

	categories := make(map[string]*categoryAccum)
	scorers := make(map[string]*scorerAccum)
	scores := make([]float64, 0, len(results))
	var (
		scoredCases int
		scoreSum    float64
		latencySum  int64
	)
	for _, res := range results {
		if res == nil {
			continue
		}
		cat := categories[res.Category]
		if cat == nil {
			cat = &categoryAccum{}
			categories[res.Category] = cat
		}
		cat.total++
		cat.costSum += res.Metadata.CostUSD
		report.TotalCostUSD += res.Metadata.CostUSD
		report.TotalPromptTokens += res.Metadata.PromptTokens
		report.TotalCompletionTokens += res.Metadata.CompletionTokens
		if res.Passed {
			report.PassedCases++
			cat.passed++
		}
		if res.Errored() {
			report.ErroredCases++
			continue
		}
		score := aggregateScore(res)
		scores = append(scores, score)
		scoredCases++
		scoreSum += score
		latencySum += res.Metadata.LatencyMs
		cat.scored++
		cat.scoreSum += score
		cat.latencySum += res.Metadata.LatencyMs
		for _, sr := range res.ScorerResults {
			acc := scorers[sr.ScorerName]
			if acc == nil {
				acc = &scorerAccum{}
				scorers[sr.ScorerName] = acc
			}
			acc.cases++
			acc.scoreSum += sr.Score
			if sr.Passed {
				acc.passed++
			}
		}
	}

	report.FailedCases = report.TotalCases - report.PassedCases
	report.PassRate = float64(report.PassedCases) / float64(report.TotalCases)
	if scoredCases > 0 {
		report.Accuracy = scoreSum / float64(scoredCases)
		report.AvgLatencyMs = float64(latencySum) / float64(scoredCases)
	}

	sort.Float64s(scores)
	report.ScoreDistribution = Percentiles{
		P25: percentile(scores, 0.25),
		P50: percentile(scores, 0.50),
		P75: percentile(scores, 0.75),
		P95: percentile(scores, 0.95),
	}

	report.ByCategory = make(map[string]*CategoryStats, len(categories))
	for name, acc := range categories {
		stats := &CategoryStats{
			Total:    acc.total,
			Passed:   acc.passed,
			Scored:   acc.scored,
			PassRate: float64(acc.passed) / float64(acc.total),
		}
		if acc.scored > 0 {
			stats.Accuracy = acc.scoreSum / float64(acc.scored)
			stats.AvgLatencyMs = float64(acc.latencySum) / float64(acc.scored)
		}
		stats.AvgCostUSD = acc.costSum / float64(acc.total)
		report.ByCategory[name] = stats
	}
	report.ByScorer = make(map[string]*ScorerStats, len(scorers))
	for name, acc := range scorers {
		report.ByScorer[name] = &ScorerStats{
			Cases:    acc.cases,
			AvgScore: acc.scoreSum / float64(acc.cases),
			PassRate: float64(acc.passed) / float64(acc.cases),
		}
	}

	report.Recommendations = recommendations(report)
	return report
}

// aggregateScore is the mean of a case's scorer scores.
func aggregateScore(res *evalrun.TestCaseResult) float64 {
	if len(res.ScorerResults) == 0 {
		return 0
	}
	var sum float64
	for _, sr := range res.ScorerResults {
		sum += sr.Score
	}
	return sum / float64(len(res.ScorerResults))
}

// percentile calculates the p-th percentile of sorted samples using linear
// interpolation, p in [0,1].
func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if len(sorted) == 1 {
		return sorted[0]
	}
	index := p * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}
	fraction := index - float64(lower)
	return sorted[lower]*(1-fraction) + sorted[upper]*fraction
}

// recommendations applies the fixed rule list in order, iterating maps in
// sorted key order so output is stable.
func recommendations(r *Report) []string {
	var recs []string
	for _, name := range sortedKeys(r.ByCategory) {
		stats := r.ByCategory[name]
		if stats.Scored > 0 && stats.Accuracy < lowCategoryAccuracy {
			recs = append(recs, fmt.Sprintf(
				"category %q accuracy is %.1f%%; review its failing cases",
				name, stats.Accuracy*100))
		}
	}
	for _, name := range sortedKeys(r.ByScorer) {
		stats := r.ByScorer[name]
		if stats.PassRate < weakScorerPassRate {
			recs = append(recs, fmt.Sprintf(
				"scorer %q passes only %.1f%% of cases; revisit its threshold or the model fit",
				name, stats.PassRate*100))
		}
	}
	if r.AvgLatencyMs > slowAvgLatencyMs {
		recs = append(recs, fmt.Sprintf(
			"average case latency is %.1fs; consider a faster model or a lower max_tokens",
			r.AvgLatencyMs/1000))
	}
	if r.ErroredCases > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d of %d cases errored before scoring; check provider health and retry budgets",
			r.ErroredCases, r.TotalCases))
	}
	if len(r.ByCategory) > 1 && r.TotalCostUSD > 0 {
		for _, name := range sortedKeys(r.ByCategory) {
			stats := r.ByCategory[name]
			share := stats.AvgCostUSD * float64(stats.Total) / r.TotalCostUSD
			if share > costConcentration {
				recs = append(recs, fmt.Sprintf(
					"category %q drives %.0f%% of run cost", name, share*100))
			}
		}
	}
	return recs
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
