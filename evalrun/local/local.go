//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides a local file storage manager for evaluation runs.
// Each run is stored as one JSON document, written atomically.
package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
)

const (
	defaultTempFileSuffix = ".tmp"
	defaultDirPermission  = 0o755
	defaultFilePermission = 0o644

	runFileSuffix = ".run.json"
)

// manager implements evalrun.Manager backed by the local filesystem.
type manager struct {
	mu      sync.RWMutex
	baseDir string
}

// New creates a local file evaluation run manager rooted at baseDir.
func New(baseDir string) evalrun.Manager {
	return &manager{baseDir: baseDir}
}

// Save stores or replaces a run.
func (m *manager) Save(_ context.Context, run *evalrun.EvalRun) error {
	if run == nil {
		return errors.New("run is nil")
	}
	if run.ID == "" {
		return errors.New("run id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store(run); err != nil {
		return fmt.Errorf("store run %s: %w", run.ID, err)
	}
	return nil
}

// Get returns the run with the given ID.
func (m *manager) Get(_ context.Context, runID string) (*evalrun.EvalRun, error) {
	if runID == "" {
		return nil, errors.New("run id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	run, err := m.load(runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	return run, nil
}

// Latest returns the most recently started matching run.
func (m *manager) Latest(_ context.Context, datasetID, modelID string) (*evalrun.EvalRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, err := m.listLocked()
	if err != nil {
		return nil, err
	}
	var latest *evalrun.EvalRun
	for _, id := range ids {
		run, err := m.load(id)
		if err != nil {
			return nil, fmt.Errorf("load run %s: %w", id, err)
		}
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
	return latest, nil
}

// List returns all run IDs ordered by start time ascending.
func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids, err := m.listLocked()
	if err != nil {
		return nil, err
	}
	type startedRun struct {
		id      string
		started int64
	}
	runs := make([]startedRun, 0, len(ids))
	for _, id := range ids {
		run, err := m.load(id)
		if err != nil {
			return nil, fmt.Errorf("load run %s: %w", id, err)
		}
		runs = append(runs, startedRun{id: id, started: run.StartedAt.UnixNano()})
	}
	sort.Slice(runs, func(i, j int) bool {
		if runs[i].started == runs[j].started {
			return runs[i].id < runs[j].id
		}
		return runs[i].started < runs[j].started
	})
	out := make([]string, len(runs))
	for i, r := range runs {
		out[i] = r.id
	}
	return out, nil
}

// Delete removes a run.
func (m *manager) Delete(_ context.Context, runID string) error {
	if runID == "" {
		return errors.New("run id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.runPath(runID)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete run %s: %w", runID, err)
	}
	return nil
}

func (m *manager) runPath(runID string) string {
	return filepath.Join(m.baseDir, runID+runFileSuffix)
}

func (m *manager) listLocked() ([]string, error) {
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", m.baseDir, err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), runFileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(entry.Name(), runFileSuffix))
	}
	return ids, nil
}

func (m *manager) load(runID string) (*evalrun.EvalRun, error) {
	data, err := os.ReadFile(m.runPath(runID))
	if err != nil {
		return nil, err
	}
	run := &evalrun.EvalRun{}
	if err := json.Unmarshal(data, run); err != nil {
		return nil, fmt.Errorf("unmarshal run: %w", err)
	}
	return run, nil
}

// store writes the run to a temp file and renames it into place so readers
// never observe a partial document.
func (m *manager) store(run *evalrun.EvalRun) error {
	if err := os.MkdirAll(m.baseDir, defaultDirPermission); err != nil {
		return fmt.Errorf("create dir %s: %w", m.baseDir, err)
	}
	path := m.runPath(run.ID)
	tmpPath := path + defaultTempFileSuffix
	file, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaultFilePermission)
	if err != nil {
		return fmt.Errorf("open temp file %s: %w", tmpPath, err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(run); err != nil {
		_ = file.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode run: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s to %s: %w", tmpPath, path, err)
	}
	return nil
}
