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
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/metrics"
	"trpc.group/trpc-go/trpc-eval-go/scorer/exactmatch"
)

func TestParseReportFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    ReportFormat
		wantErr bool
	}{
		{in: "", want: ReportFormatText},
		{in: "text", want: ReportFormatText},
		{in: "markdown", want: ReportFormatMarkdown},
		{in: "json", want: ReportFormatJSON},
		{in: "yaml", wantErr: true},
		{in: "Text", wantErr: true},
	}
	for _, tt := range tests {
		t.Run("format "+tt.in, func(t *testing.T) {
			got, err := ParseReportFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "unknown report format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReport_Formats(t *testing.T) {
	good := &mapProvider{name: "good-model", answers: goodAnswers()}
	f := newFixture(t, staticBuilder(good))
	seedQADataset(t, f.datasets)

	ctx := context.Background()
	outcome, err := f.evaluator.Run(ctx, "qa-smoke", RunConfig{ScorerNames: []string{exactmatch.Name}})
	require.NoError(t, err)
	runID := outcome.Run.ID

	text, err := f.evaluator.Report(ctx, runID, ReportFormatText)
	require.NoError(t, err)
	assert.Contains(t, text, "Evaluation report "+runID)
	assert.Contains(t, text, "Pass rate: 100.0%")

	markdown, err := f.evaluator.Report(ctx, runID, ReportFormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, markdown, "# Evaluation Report "+runID)
	assert.Contains(t, markdown, "| Total cases | 2 |")

	encoded, err := f.evaluator.Report(ctx, runID, ReportFormatJSON)
	require.NoError(t, err)
	var report metrics.Report
	require.NoError(t, json.Unmarshal([]byte(encoded), &report))
	assert.Equal(t, runID, report.RunID)
	assert.Equal(t, 2, report.TotalCases)
	assert.Equal(t, 2, report.PassedCases)

	// An empty run id renders the most recently started run.
	latest, err := f.evaluator.Report(ctx, "", ReportFormatText)
	require.NoError(t, err)
	assert.Equal(t, text, latest)

	_, err = f.evaluator.Report(ctx, runID, ReportFormat("yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown report format")
}

func TestReport_MissingRuns(t *testing.T) {
	f := newFixture(t, staticBuilder(&mapProvider{name: "good-model"}))
	ctx := context.Background()

	_, err := f.evaluator.Report(ctx, "missing", ReportFormatText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get run")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = f.evaluator.Report(ctx, "", ReportFormatText)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get latest run")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
