//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package metrics

import (
	"fmt"
	"strings"
)

// FormatText renders the report as a plain console block.
func FormatText(r *Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Evaluation report %s\n", r.RunID))
	sb.WriteString(strings.Repeat("=", 18+len(r.RunID)) + "\n")
	sb.WriteString(fmt.Sprintf("Cases:     %d total, %d passed, %d failed (%d errored)\n",
		r.TotalCases, r.PassedCases, r.FailedCases, r.ErroredCases))
	sb.WriteString(fmt.Sprintf("Pass rate: %.1f%%\n", r.PassRate*100))
	sb.WriteString(fmt.Sprintf("Accuracy:  %.1f%%\n", r.Accuracy*100))
	sb.WriteString(fmt.Sprintf("Latency:   avg %.0fms\n", r.AvgLatencyMs))
	sb.WriteString(fmt.Sprintf("Cost:      $%.4f (%d prompt tokens, %d completion tokens)\n",
		r.TotalCostUSD, r.TotalPromptTokens, r.TotalCompletionTokens))
	sb.WriteString(fmt.Sprintf("Scores:    p25 %.2f  p50 %.2f  p75 %.2f  p95 %.2f\n",
		r.ScoreDistribution.P25, r.ScoreDistribution.P50,
		r.ScoreDistribution.P75, r.ScoreDistribution.P95))

	if len(r.ByCategory) > 0 {
		sb.WriteString("\nBy category:\n")
		for _, name := range sortedKeys(r.ByCategory) {
			stats := r.ByCategory[name]
			sb.WriteString(fmt.Sprintf("  %-20s %d/%d passed, accuracy %.1f%%, avg %.0fms, avg $%.4f\n",
				name, stats.Passed, stats.Total, stats.Accuracy*100,
				stats.AvgLatencyMs, stats.AvgCostUSD))
		}
	}
	if len(r.ByScorer) > 0 {
		sb.WriteString("\nBy scorer:\n")
		for _, name := range sortedKeys(r.ByScorer) {
			stats := r.ByScorer[name]
			sb.WriteString(fmt.Sprintf("  %-20s avg score %.2f, pass rate %.1f%% over %d cases\n",
				name, stats.AvgScore, stats.PassRate*100, stats.Cases))
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for _, rec := range r.Recommendations {
			sb.WriteString("  - " + rec + "\n")
		}
	}
	return sb.String()
}

// FormatMarkdown renders the report as a markdown document.
func FormatMarkdown(r *Report) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Evaluation Report %s\n\n", r.RunID))

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total cases | %d |\n", r.TotalCases))
	sb.WriteString(fmt.Sprintf("| Passed | %d |\n", r.PassedCases))
	sb.WriteString(fmt.Sprintf("| Failed | %d |\n", r.FailedCases))
	sb.WriteString(fmt.Sprintf("| Errored | %d |\n", r.ErroredCases))
	sb.WriteString(fmt.Sprintf("| Pass rate | %.1f%% |\n", r.PassRate*100))
	sb.WriteString(fmt.Sprintf("| Accuracy | %.1f%% |\n", r.Accuracy*100))
	sb.WriteString(fmt.Sprintf("| Avg latency | %.0fms |\n", r.AvgLatencyMs))
	sb.WriteString(fmt.Sprintf("| Total cost | $%.4f |\n", r.TotalCostUSD))
	sb.WriteString(fmt.Sprintf("| Scores p25/p50/p75/p95 | %.2f / %.2f / %.2f / %.2f |\n",
		r.ScoreDistribution.P25, r.ScoreDistribution.P50,
		r.ScoreDistribution.P75, r.ScoreDistribution.P95))

	if len(r.ByCategory) > 0 {
		sb.WriteString("\n## Categories\n\n")
		sb.WriteString("| Category | Total | Passed | Accuracy | Avg latency | Avg cost |\n")
		sb.WriteString("|----------|-------|--------|----------|-------------|----------|\n")
		for _, name := range sortedKeys(r.ByCategory) {
			stats := r.ByCategory[name]
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.1f%% | %.0fms | $%.4f |\n",
				name, stats.Total, stats.Passed, stats.Accuracy*100,
				stats.AvgLatencyMs, stats.AvgCostUSD))
		}
	}
	if len(r.ByScorer) > 0 {
		sb.WriteString("\n## Scorers\n\n")
		sb.WriteString("| Scorer | Cases | Avg score | Pass rate |\n")
		sb.WriteString("|--------|-------|-----------|----------|\n")
		for _, name := range sortedKeys(r.ByScorer) {
			stats := r.ByScorer[name]
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.1f%% |\n",
				name, stats.Cases, stats.AvgScore, stats.PassRate*100))
		}
	}
	if len(r.Recommendations) > 0 {
		sb.WriteString("\n## Recommendations\n\n")
		for _, rec := range r.Recommendations {
			sb.WriteString("- " + rec + "\n")
		}
	}
	return sb.String()
}
