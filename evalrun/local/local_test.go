//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package local

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
)

func sampleRun(id string, started time.Time) *evalrun.EvalRun {
	completed := started.Add(time.Minute)
	return &evalrun.EvalRun{
		ID:          id,
		DatasetID:   "qa-v1",
		Model:       evalrun.ModelConfig{ID: "gpt-4o-mini"},
		Status:      evalrun.StatusCompleted,
		StartedAt:   started,
		CompletedAt: &completed,
		Results: []*evalrun.TestCaseResult{
			{TestCaseID: "tc-1", Passed: true, Metadata: evalrun.ResultMetadata{LatencyMs: 95}},
			{TestCaseID: "tc-2", Passed: false, Metadata: evalrun.ResultMetadata{LatencyMs: 180}},
		},
	}
}

// TestSaveGet_Roundtrip verifies persistence across manager instances.
func TestSaveGet_Roundtrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	m := New(dir)
	require.NoError(t, m.Save(ctx, sampleRun("run-1", started)))

	reopened := New(dir)
	got, err := reopened.Get(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "qa-v1", got.DatasetID)
	assert.True(t, got.StartedAt.Equal(started))
	require.Len(t, got.Results, 2)
	assert.Equal(t, int64(180), got.Results[1].Metadata.LatencyMs)
	assert.Equal(t, time.Minute, got.Duration())
}

// TestSave_Atomicity verifies no temp files survive a save.
func TestSave_Atomicity(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := New(dir)

	require.NoError(t, m.Save(ctx, sampleRun("run-1", time.Now())))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "run-1"+runFileSuffix, entries[0].Name())
}

// TestList_OrderAndFiltering verifies suffix filtering and chronological
// order.
func TestList_OrderAndFiltering(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m := New(dir)
	require.NoError(t, m.Save(ctx, sampleRun("run-b", base.Add(time.Minute))))
	require.NoError(t, m.Save(ctx, sampleRun("run-a", base)))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-a", "run-b"}, ids)
}

// TestList_MissingDir verifies an absent base dir lists empty.
func TestList_MissingDir(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "never-created"))
	ids, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

// TestLatest verifies recency selection over files.
func TestLatest(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	m := New(dir)
	require.NoError(t, m.Save(ctx, sampleRun("run-old", base)))
	require.NoError(t, m.Save(ctx, sampleRun("run-new", base.Add(time.Hour))))

	got, err := m.Latest(ctx, "qa-v1", "")
	require.NoError(t, err)
	assert.Equal(t, "run-new", got.ID)

	_, err = m.Latest(ctx, "absent", "")
	require.ErrorIs(t, err, os.ErrNotExist)
}

// TestDelete verifies removal semantics.
func TestDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := New(dir)
	require.NoError(t, m.Save(ctx, sampleRun("run-1", time.Now())))

	require.NoError(t, m.Delete(ctx, "run-1"))
	_, err := m.Get(ctx, "run-1")
	require.ErrorIs(t, err, os.ErrNotExist)

	err = m.Delete(ctx, "run-1")
	require.ErrorIs(t, err, os.ErrNotExist)
}
