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
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
)

func newBaseline(id, datasetID string, createdAt time.Time) *baseline.Baseline {
	return &baseline.Baseline{
		ID:        id,
		DatasetID: datasetID,
		RunID:     "run-" + id,
		ModelID:   "gpt-4o-mini",
		Metrics: baseline.Metrics{
			Accuracy: 0.9,
			PassRate: 0.85,
		},
		CreatedAt: createdAt,
	}
}

// TestPromoteAndActive verifies promotion activates the new baseline and
// deactivates the previous one without deleting it.
func TestPromoteAndActive(t *testing.T) {
	ctx := context.Background()
	m := New()
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	first := newBaseline("b-1", "qa-v1", t0)
	require.NoError(t, m.Promote(ctx, first))

	active, err := m.Active(ctx, "qa-v1")
	require.NoError(t, err)
	assert.Equal(t, "b-1", active.ID)
	assert.True(t, active.IsActive)

	second := newBaseline("b-2", "qa-v1", t0.Add(time.Hour))
	require.NoError(t, m.Promote(ctx, second))

	active, err = m.Active(ctx, "qa-v1")
	require.NoError(t, err)
	assert.Equal(t, "b-2", active.ID)

	// The prior baseline is deactivated, not removed.
	prior, err := m.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.False(t, prior.IsActive)
}

// TestPromote_IsolatedPerDataset verifies promotion in one dataset does not
// deactivate baselines of another.
func TestPromote_IsolatedPerDataset(t *testing.T) {
	ctx := context.Background()
	m := New()
	now := time.Now()

	require.NoError(t, m.Promote(ctx, newBaseline("b-qa", "qa-v1", now)))
	require.NoError(t, m.Promote(ctx, newBaseline("b-sum", "summarize-v2", now)))

	active, err := m.Active(ctx, "qa-v1")
	require.NoError(t, err)
	assert.Equal(t, "b-qa", active.ID)

	active, err = m.Active(ctx, "summarize-v2")
	require.NoError(t, err)
	assert.Equal(t, "b-sum", active.ID)
}

// TestPromote_Validation verifies invalid baselines are rejected.
func TestPromote_Validation(t *testing.T) {
	ctx := context.Background()
	m := New()

	assert.Error(t, m.Promote(ctx, nil))
	assert.Error(t, m.Promote(ctx, &baseline.Baseline{DatasetID: "qa-v1", RunID: "r"}))
	assert.Error(t, m.Promote(ctx, &baseline.Baseline{ID: "b-1", RunID: "r"}))
}

// TestActive_NotFound verifies the os.ErrNotExist wrapping.
func TestActive_NotFound(t *testing.T) {
	m := New()
	_, err := m.Active(context.Background(), "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = m.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

// TestHistory_NewestFirst verifies ordering and per-dataset filtering.
func TestHistory_NewestFirst(t *testing.T) {
	ctx := context.Background()
	m := New()
	t0 := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		b := newBaseline(fmt.Sprintf("b-%d", i), "qa-v1", t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, m.Promote(ctx, b))
	}
	require.NoError(t, m.Promote(ctx, newBaseline("b-other", "summarize-v2", t0)))

	history, err := m.History(ctx, "qa-v1")
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "b-2", history[0].ID)
	assert.Equal(t, "b-1", history[1].ID)
	assert.Equal(t, "b-0", history[2].ID)
	assert.True(t, history[0].IsActive)
	assert.False(t, history[1].IsActive)
	assert.False(t, history[2].IsActive)
}

// TestPromote_StoresCopy verifies mutations of the caller's struct after
// promotion do not leak into the store.
func TestPromote_StoresCopy(t *testing.T) {
	ctx := context.Background()
	m := New()

	b := newBaseline("b-1", "qa-v1", time.Now())
	require.NoError(t, m.Promote(ctx, b))
	b.Metrics.Accuracy = 0

	stored, err := m.Get(ctx, "b-1")
	require.NoError(t, err)
	assert.InDelta(t, 0.9, stored.Metrics.Accuracy, 1e-9)
}
