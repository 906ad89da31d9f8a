//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory baseline store.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
)

// manager implements baseline.Manager backed by process memory.
type manager struct {
	mu        sync.RWMutex
	baselines map[string]*baseline.Baseline
}

// New creates an in-memory baseline manager.
func New() baseline.Manager {
	return &manager{baselines: make(map[string]*baseline.Baseline)}
}

// Promote stores b as the active baseline for its dataset, deactivating the
// previous one. Deactivated baselines remain available through History.
func (m *manager) Promote(_ context.Context, b *baseline.Baseline) error {
	if err := b.Validate(); err != nil {
		return err
	}
	promoted := *b
	promoted.IsActive = true
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.baselines {
		if existing.DatasetID == b.DatasetID {
			existing.IsActive = false
		}
	}
	m.baselines[promoted.ID] = &promoted
	return nil
}

// Active returns the active baseline for a dataset.
func (m *manager) Active(_ context.Context, datasetID string) (*baseline.Baseline, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.baselines {
		if b.DatasetID == datasetID && b.IsActive {
			cloned := *b
			return &cloned, nil
		}
	}
	return nil, fmt.Errorf("active baseline for dataset %s: %w", datasetID, os.ErrNotExist)
}

// Get returns the baseline with the given ID.
func (m *manager) Get(_ context.Context, id string) (*baseline.Baseline, error) {
	if id == "" {
		return nil, errors.New("baseline id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.baselines[id]
	if !ok {
		return nil, fmt.Errorf("get baseline %s: %w", id, os.ErrNotExist)
	}
	cloned := *b
	return &cloned, nil
}

// History returns all baselines for a dataset, newest first.
func (m *manager) History(_ context.Context, datasetID string) ([]*baseline.Baseline, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var history []*baseline.Baseline
	for _, b := range m.baselines {
		if b.DatasetID != datasetID {
			continue
		}
		cloned := *b
		history = append(history, &cloned)
	}
	sort.Slice(history, func(i, j int) bool {
		if history[i].CreatedAt.Equal(history[j].CreatedAt) {
			return history[i].ID > history[j].ID
		}
		return history[i].CreatedAt.After(history[j].CreatedAt)
	})
	return history, nil
}
