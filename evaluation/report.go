//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"context"
	"encoding/json"
	"fmt"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/metrics"
)

// ReportFormat selects a report rendering.
type ReportFormat string

const (
	// ReportFormatText renders a plain console block.
	ReportFormatText ReportFormat = "text"
	// ReportFormatMarkdown renders a markdown document.
	ReportFormatMarkdown ReportFormat = "markdown"
	// ReportFormatJSON renders the report struct as indented JSON.
	ReportFormatJSON ReportFormat = "json"
)

// ParseReportFormat maps a CLI flag value to a ReportFormat. The empty
// string maps to text.
func ParseReportFormat(s string) (ReportFormat, error) {
	switch s {
	case "", "text":
		return ReportFormatText, nil
	case "markdown":
		return ReportFormatMarkdown, nil
	case "json":
		return ReportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format %q", s)
	}
}

// Report renders the aggregated report of a stored run. An empty runID
// renders the most recently started run.
func (e *Evaluator) Report(ctx context.Context, runID string, format ReportFormat) (string, error) {
	run, err := e.loadRun(ctx, runID)
	if err != nil {
		return "", err
	}
	report := metrics.Aggregate(run.ID, run.Results)
	switch format {
	case ReportFormatText, "":
		return metrics.FormatText(report), nil
	case ReportFormatMarkdown:
		return metrics.FormatMarkdown(report), nil
	case ReportFormatJSON:
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode report: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown report format %q", format)
	}
}

func (e *Evaluator) loadRun(ctx context.Context, runID string) (*evalrun.EvalRun, error) {
	if runID == "" {
		latest, err := e.runs.Latest(ctx, "", "")
		if err != nil {
			return nil, fmt.Errorf("get latest run: %w", err)
		}
		return latest, nil
	}
	r, err := e.runs.Get(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}
