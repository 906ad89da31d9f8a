//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"trpc.group/trpc-go/trpc-eval-go/metrics"
)

// Severity grades how far a metric regressed from the baseline.
type Severity int

const (
	// SeverityMinor is a regression below the major threshold.
	SeverityMinor Severity = iota
	// SeverityMajor is a regression at or past the major threshold.
	SeverityMajor
	// SeverityCritical is a regression at or past the critical threshold.
	SeverityCritical
)

// String returns the lowercase name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityMinor:
		return "minor"
	case SeverityMajor:
		return "major"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParseSeverity parses a severity name as it appears in configuration.
func ParseSeverity(s string) (Severity, error) {
	switch s {
	case "minor":
		return SeverityMinor, nil
	case "major":
		return SeverityMajor, nil
	case "critical":
		return SeverityCritical, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity from its name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	severity, err := ParseSeverity(name)
	if err != nil {
		return err
	}
	*s = severity
	return nil
}

// Tracked metric names as they appear in Regression.Metric.
const (
	MetricAccuracy     = "accuracy"
	MetricPassRate     = "pass_rate"
	MetricAvgLatencyMs = "avg_latency_ms"
	MetricAvgCostUSD   = "avg_cost_usd"
)

// Regression records one metric that moved the wrong way relative to the
// active baseline.
type Regression struct {
	// Metric names the regressed metric, e.g. "accuracy".
	Metric string `json:"metric"`
	// Severity grades the regression.
	Severity Severity `json:"severity"`
	// BaselineValue is the metric value pinned by the baseline.
	BaselineValue float64 `json:"baseline_value"`
	// CurrentValue is the metric value of the fresh report.
	CurrentValue float64 `json:"current_value"`
	// Delta is CurrentValue minus BaselineValue.
	Delta float64 `json:"delta"`
	// Message is a human-readable one-liner describing the regression.
	Message string `json:"message"`
}

// Tier holds the major and critical cutoffs for one metric family.
type Tier struct {
	// Major is the cutoff at or past which a regression is major.
	Major float64
	// Critical is the cutoff at or past which a regression is critical.
	Critical float64
}

// Thresholds configures regression severity per tracked metric. Quality
// metrics grade on absolute drop in points (percentage of 100); latency and
// cost grade on relative increase over the baseline value.
type Thresholds struct {
	// AccuracyDropPoints grades accuracy drops, in points.
	AccuracyDropPoints Tier
	// PassRateDropPoints grades pass-rate drops, in points.
	PassRateDropPoints Tier
	// LatencyIncreaseRatio grades latency growth, as a fraction of the
	// baseline value.
	LatencyIncreaseRatio Tier
	// CostIncreaseRatio grades cost growth, as a fraction of the baseline
	// value.
	CostIncreaseRatio Tier
}

// DefaultThresholds returns the stock severity thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		AccuracyDropPoints:   Tier{Major: 5, Critical: 10},
		PassRateDropPoints:   Tier{Major: 5, Critical: 10},
		LatencyIncreaseRatio: Tier{Major: 0.25, Critical: 0.50},
		CostIncreaseRatio:    Tier{Major: 0.25, Critical: 0.50},
	}
}

// Comparator grades fresh reports against a baseline.
type Comparator struct {
	thresholds Thresholds
}

// NewComparator builds a comparator with the given thresholds. Use
// DefaultThresholds when no overrides are configured.
func NewComparator(thresholds Thresholds) *Comparator {
	return &Comparator{thresholds: thresholds}
}

// Compare checks every tracked metric of report against base and returns the
// regressions ordered by severity, most severe first. A nil base returns
// ErrNoBaseline so callers can prompt for an initial promotion instead of
// reporting regressions that have no reference point.
func (c *Comparator) Compare(report *metrics.Report, base *Baseline) ([]Regression, error) {
	if report == nil {
		return nil, errors.New("report is nil")
	}
	if base == nil {
		return nil, ErrNoBaseline
	}
	var regressions []Regression
	regressions = appendDrop(regressions, MetricAccuracy,
		base.Metrics.Accuracy, report.Accuracy, c.thresholds.AccuracyDropPoints)
	regressions = appendDrop(regressions, MetricPassRate,
		base.Metrics.PassRate, report.PassRate, c.thresholds.PassRateDropPoints)
	regressions = appendIncrease(regressions, MetricAvgLatencyMs,
		base.Metrics.AvgLatencyMs, report.AvgLatencyMs, c.thresholds.LatencyIncreaseRatio)
	regressions = appendIncrease(regressions, MetricAvgCostUSD,
		base.Metrics.AvgCostUSD, averageCostUSD(report), c.thresholds.CostIncreaseRatio)
	sort.Slice(regressions, func(i, j int) bool {
		if regressions[i].Severity != regressions[j].Severity {
			return regressions[i].Severity > regressions[j].Severity
		}
		return regressions[i].Metric < regressions[j].Metric
	})
	return regressions, nil
}

// appendDrop grades quality metrics where lower is worse. A non-negative
// delta is not a regression; any drop is at least minor.
func appendDrop(regs []Regression, metric string, base, current float64, tier Tier) []Regression {
	delta := current - base
	if delta >= 0 {
		return regs
	}
	dropPoints := -delta * 100
	severity := SeverityMinor
	switch {
	case dropPoints >= tier.Critical:
		severity = SeverityCritical
	case dropPoints >= tier.Major:
		severity = SeverityMajor
	}
	return append(regs, Regression{
		Metric:        metric,
		Severity:      severity,
		BaselineValue: base,
		CurrentValue:  current,
		Delta:         delta,
		Message: fmt.Sprintf("%s dropped %.1f points, from %.1f%% to %.1f%%",
			metric, dropPoints, base*100, current*100),
	})
}

// appendIncrease grades resource metrics where higher is worse. A zero
// baseline is skipped: there is no meaningful relative increase over nothing.
func appendIncrease(regs []Regression, metric string, base, current float64, tier Tier) []Regression {
	if base <= 0 {
		return regs
	}
	delta := current - base
	if delta <= 0 {
		return regs
	}
	ratio := delta / base
	severity := SeverityMinor
	switch {
	case ratio >= tier.Critical:
		severity = SeverityCritical
	case ratio >= tier.Major:
		severity = SeverityMajor
	}
	return append(regs, Regression{
		Metric:        metric,
		Severity:      severity,
		BaselineValue: base,
		CurrentValue:  current,
		Delta:         delta,
		Message: fmt.Sprintf("%s rose %.0f%%, from %.4g to %.4g",
			metric, ratio*100, base, current),
	})
}
