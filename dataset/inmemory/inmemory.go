//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory dataset manager implementation.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
	"trpc.group/trpc-go/trpc-eval-go/internal/clone"
)

var _ dataset.Manager = (*manager)(nil)

// manager implements dataset.Manager backed by process memory.
type manager struct {
	mu       sync.RWMutex
	datasets map[string]*dataset.Dataset
}

// New creates an in-memory dataset manager.
func New() dataset.Manager {
	return &manager{datasets: make(map[string]*dataset.Dataset)}
}

// Get returns a deep clone of the dataset identified by datasetID.
func (m *manager) Get(_ context.Context, datasetID string) (*dataset.Dataset, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.datasets[datasetID]
	if !ok {
		return nil, fmt.Errorf("dataset %s not found: %w", datasetID, os.ErrNotExist)
	}
	cloned, err := clone.Clone(d)
	if err != nil {
		return nil, fmt.Errorf("clone dataset %s: %w", datasetID, err)
	}
	return cloned, nil
}

// Create validates and stores a new dataset.
func (m *manager) Create(_ context.Context, d *dataset.Dataset) error {
	if d == nil {
		return errors.New("dataset is nil")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[d.ID]; ok {
		return fmt.Errorf("dataset %s already exists", d.ID)
	}
	cloned, err := clone.Clone(d)
	if err != nil {
		return fmt.Errorf("clone dataset %s: %w", d.ID, err)
	}
	if cloned.CreationTimestamp.IsZero() {
		cloned.CreationTimestamp = time.Now().UTC()
	}
	m.datasets[cloned.ID] = cloned
	return nil
}

// AddCase appends a test case to an existing dataset.
func (m *manager) AddCase(_ context.Context, datasetID string, tc *dataset.TestCase) error {
	if datasetID == "" {
		return errors.New("dataset id is empty")
	}
	if tc == nil {
		return errors.New("test case is nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.datasets[datasetID]
	if !ok {
		return fmt.Errorf("dataset %s not found: %w", datasetID, os.ErrNotExist)
	}
	if d.Case(tc.ID) != nil {
		return fmt.Errorf("test case %s already exists in dataset %s", tc.ID, datasetID)
	}
	cloned, err := clone.Clone(tc)
	if err != nil {
		return fmt.Errorf("clone test case %s: %w", tc.ID, err)
	}
	d.Cases = append(d.Cases, *cloned)
	return nil
}

// List returns the ids of all stored datasets in sorted order.
func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.datasets))
	for id := range m.datasets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Delete removes the dataset identified by datasetID.
func (m *manager) Delete(_ context.Context, datasetID string) error {
	if datasetID == "" {
		return errors.New("dataset id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[datasetID]; !ok {
		return fmt.Errorf("dataset %s not found: %w", datasetID, os.ErrNotExist)
	}
	delete(m.datasets, datasetID)
	return nil
}
