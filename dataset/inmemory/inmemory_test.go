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
	"errors"
	"os"
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
			{ID: "c1", Name: "first", Input: "q1", Expected: "a1"},
		},
	}
}

// TestCreateAndGet verifies the round trip and that Get returns a clone.
func TestCreateAndGet(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Create(ctx, testDataset("ds")))

	got, err := m.Get(ctx, "ds")
	require.NoError(t, err)
	assert.Equal(t, "ds", got.ID)
	assert.False(t, got.CreationTimestamp.IsZero())

	got.Cases[0].Name = "mutated"
	again, err := m.Get(ctx, "ds")
	require.NoError(t, err)
	assert.Equal(t, "first", again.Cases[0].Name)
}

// TestCreateRejectsInvalid verifies validation runs on create.
func TestCreateRejectsInvalid(t *testing.T) {
	m := New()
	d := testDataset("bad")
	d.Version = "nope"
	err := m.Create(context.Background(), d)
	require.Error(t, err)
	var verr *dataset.ValidationError
	assert.True(t, errors.As(err, &verr))
}

// TestCreateDuplicate verifies a second create with the same id fails.
func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Create(ctx, testDataset("ds")))
	err := m.Create(ctx, testDataset("ds"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

// TestGetMissing verifies missing datasets wrap os.ErrNotExist.
func TestGetMissing(t *testing.T) {
	_, err := New().Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

// TestAddCase verifies appending cases and duplicate id rejection.
func TestAddCase(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Create(ctx, testDataset("ds")))

	require.NoError(t, m.AddCase(ctx, "ds", &dataset.TestCase{ID: "c2", Name: "second", Input: "q2"}))
	got, err := m.Get(ctx, "ds")
	require.NoError(t, err)
	assert.Len(t, got.Cases, 2)

	err = m.AddCase(ctx, "ds", &dataset.TestCase{ID: "c1", Name: "dup", Input: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

// TestListAndDelete verifies listing order and deletion.
func TestListAndDelete(t *testing.T) {
	ctx := context.Background()
	m := New()
	require.NoError(t, m.Create(ctx, testDataset("b")))
	require.NoError(t, m.Create(ctx, testDataset("a")))

	ids, err := m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, m.Delete(ctx, "a"))
	ids, err = m.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)

	err = m.Delete(ctx, "a")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
