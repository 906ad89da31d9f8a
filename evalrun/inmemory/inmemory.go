//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory evaluation run store.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/internal/clone"
)

// manager implements evalrun.Manager backed by process memory.
type manager struct {
	mu   sync.RWMutex
	runs map[string]*evalrun.EvalRun
}

// New creates an in-memory evaluation run manager.
func New() evalrun.Manager {
	return &manager{runs: make(map[string]*evalrun.EvalRun)}
}

// Save stores or replaces a run.
func (m *manager) Save(_ context.Context, run *evalrun.EvalRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	cloned, err := clone.Clone(run)
	if err != nil {
		return fmt.Errorf("clone run %s: %w", run.ID, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs[run.ID] = cloned
	return nil
}

// Get returns the run with the given ID.
func (m *manager) Get(_ context.Context, runID string) (*evalrun.EvalRun, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("get run %s: %w", runID, os.ErrNotExist)
	}
	cloned, err := clone.Clone(run)
	if err != nil {
		return nil, fmt.Errorf("clone run %s: %w", runID, err)
	}
	return cloned, nil
}

// Latest returns the most recently started matching run.
func (m *manager) Latest(_ context.Context, datasetID, modelID string) (*evalrun.EvalRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var latest *evalrun.EvalRun
	for _, run := range m.runs {
		if datasetID != "" && run.DatasetID != datasetID {
			continue
		}
		if modelID != "" && run.Model.ID != modelID {
			continue
		}
		if latest == nil || run.StartedAt.After(latest.StartedAt) {
			latest = run
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("latest run for dataset %q model %q: %w", datasetID, modelID, os.ErrNotExist)
	}
	cloned, err := clone.Clone(latest)
	if err != nil {
		return nil, fmt.Errorf("clone run %s: %w", latest.ID, err)
	}
	return cloned, nil
}

// List returns all run IDs ordered by start time ascending.
func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	runs := make([]*evalrun.EvalRun, 0, len(m.runs))
	for _, run := range m.runs {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].StartedAt.Equal(runs[j].StartedAt) {
			return runs[i].ID < runs[j].ID
		}
		return runs[i].StartedAt.Before(runs[j].StartedAt)
	})
	ids := make([]string, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
	}
	return ids, nil
}

// Delete removes a run.
func (m *manager) Delete(_ context.Context, runID string) error {
	if runID == "" {
		return errors.New("run id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[runID]; !ok {
		return fmt.Errorf("delete run %s: %w", runID, os.ErrNotExist)
	}
	delete(m.runs, runID)
	return nil
}
