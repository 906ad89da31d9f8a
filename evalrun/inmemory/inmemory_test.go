//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package inmemory

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

func sampleRun(id string, started time.Time) *evalrun.EvalRun {
	return &evalrun.EvalRun{
		ID:        id,
		DatasetID: "qa-v1",
		Model:     evalrun.ModelConfig{ID: "gpt-4o-mini"},
		Status:    evalrun.StatusCompleted,
		StartedAt: started,
		Results: []*evalrun.TestCaseResult{
			{
				TestCaseID: "tc-1",
				Passed:     true,
				ScorerResults: []*scorer.Result{
					{ScorerName: "exact_match", Score: 1, Passed: true},
				},
				Metadata: evalrun.ResultMetadata{LatencyMs: 120, CostUSD: 0.0004},
			},
		},
	}
}

// TestSaveGet verifies the save/get roundtrip and clone isolation.
func TestSaveGet(t *testing.T) {
	ctx := context.Background()
	m := New()
	run := sampleRun("run-1", time.Now())

	require.NoError(t, m.Save(ctx, run))

	// Mutating the original must not leak into the store.
	run.Results[0].Passed = false

	got, err := m.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.True(t, got.Results[0].Passed)
	assert.Equal(t, "qa-v1", got.DatasetID)

	// Mutating the returned copy must not leak either.
	got.Status = evalrun.StatusFailed
	again, err := m.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, evalrun.StatusCompleted, again.Status)
}

// TestSave_Upsert verifies Save replaces an existing run.
func TestSave_Upsert(t *testing.T) {
	ctx := context.Background()
	m := New()

	run := sampleRun("run-1", time.Now())
	run.Status = evalrun.StatusRunning
	require.NoError(t, m.Save(ctx, run))

	run.Status = evalrun.StatusCompleted
	require.NoError(t, m.Save(ctx, run))

	got, err := m.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, evalrun.StatusCompleted, got.Status)
}

// TestGet_NotFound verifies the os.ErrNotExist convention.
func TestGet_NotFound(t *testing.T) {
	m := New()
	_, err := m.Get(context.Background(), "missing")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestLatest verifies filtering and recency selection.
func TestLatest(t *testing.T) {
	ctx := context.Background()
	m := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	older := sampleRun("run-old", base)
	newer := sampleRun("run-new", base.Add(time.Hour))
	other := sampleRun("run-other", base.Add(2*time.Hour))
	other.DatasetID = "math-v2"
	other.Model.ID = "gpt-4o"

	require.NoError(t, m.Save(ctx, older))
	require.NoError(t, m.Save(ctx, newer))
	require.NoError(t, m.Save(ctx, other))

	got, err := m.Latest(ctx, "qa-v1", "gpt-4o-mini")
	require.NoError(t, err)
	assert.Equal(t, "run-new", got.ID)

	got, err = m.Latest(ctx, "", "")
	require.NoError(t, err)
	assert.Equal(t, "run-other", got.ID)

	_, err = m.Latest(ctx, "qa-v1", "claude-3")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestList verifies chronological ordering.
func TestList(t *testing.T) {
	ctx := context.Background()
	m := New()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.Save(ctx, sampleRun("run-b", base.Add(time.Minute))))
	require.NoError(t, m.Save(ctx, sampleRun("run-a", base)))
	require.NoError(t, m.Save(ctx, sampleRun("run-c", base.Add(2*time.Minute))))

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b", "run-c"}, ids)
}

// TestDelete verifies removal and the missing-run error.
func TestDelete(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Save(ctx, sampleRun("run-1", time.Now())))

	require.NoError(t, m.Delete(ctx, "run-1"))
	_, err := m.Get(ctx, "run-1")
	require.ErrorIs(t, err, os.ErrNotExist)

	err = m.Delete(ctx, "run-1")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestSave_Validation verifies input guards.
func TestSave_Validation(t *testing.T) {
	m := New()
	require.Error(t, m.Save(context.Background(), nil))
	require.Error(t, m.Save(context.Background(), &evalrun.EvalRun{}))
}
