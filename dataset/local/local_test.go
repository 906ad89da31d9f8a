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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
)

func testDataset(id string) *dataset.Dataset {
	return &dataset.Dataset{
		ID:      id,
		Name:    id,
		Version: "1.0.0",
		Cases: []dataset.TestCase{
			{ID: "c1", Name: "first", Category: "smoke", Input: "q1", Expected: "a1"},
		},
	}
}

// TestCreateGetRoundTrip verifies datasets survive a store/load cycle on disk.
func TestCreateGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := New(t.TempDir())
	require.NoError(t, m.Create(ctx, testDataset("ds")))

	got, err := m.Get(ctx, "ds")
	require.NoError(t, err)
	assert.Equal(t, "ds", got.ID)
	require.Len(t, got.Cases, 1)
	assert.Equal(t, "a1", got.Cases[0].Expected)
	assert.False(t, got.CreationTimestamp.IsZero())
}

// TestCreateDuplicate verifies a second create with the same id fails.
func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	m := New(t.TempDir())
	require.NoError(t, m.Create(ctx, testDataset("ds")))
	err := m.Create(ctx, testDataset("ds"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

// TestCreateRejectsInvalid verifies nothing is written for invalid datasets.
func TestCreateRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	m := New(dir)
	d := testDataset("bad")
	d.Cases[0].ID = ""
	require.Error(t, m.Create(context.Background(), d))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// TestGetMissing verifies missing datasets wrap os.ErrNotExist.
func TestGetMissing(t *testing.T) {
	_, err := New(t.TempDir()).Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestStoreIsAtomic verifies no temp file survives a successful store.
func TestStoreIsAtomic(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := New(dir)
	require.NoError(t, m.Create(ctx, testDataset("ds")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ds"+datasetFileSuffix, entries[0].Name())
}

// TestAddCasePersists verifies AddCase rewrites the stored document.
func TestAddCasePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := New(dir)
	require.NoError(t, m.Create(ctx, testDataset("ds")))
	require.NoError(t, m.AddCase(ctx, "ds", &dataset.TestCase{ID: "c2", Name: "second", Input: "q2"}))

	reopened := New(dir)
	got, err := reopened.Get(ctx, "ds")
	require.NoError(t, err)
	assert.Len(t, got.Cases, 2)
}

// TestListAndDelete verifies listing sorted ids and removing files.
func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	m := New(dir)
	require.NoError(t, m.Create(ctx, testDataset("b")))
	require.NoError(t, m.Create(ctx, testDataset("a")))

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, m.Delete(ctx, "b"))
	_, statErr := os.Stat(filepath.Join(dir, "b"+datasetFileSuffix))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	ids, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids)
}

// TestListMissingDir verifies listing an absent base dir returns nothing.
func TestListMissingDir(t *testing.T) {
	m := New(filepath.Join(t.TempDir(), "nope"))
	ids, err := m.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}
