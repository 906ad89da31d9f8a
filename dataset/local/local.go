//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package local provides a local file storage manager implementation for datasets.
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
	"time"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
	"trpc.group/trpc-go/trpc-eval-go/internal/clone"
)

const (
	defaultTempFileSuffix = ".tmp"
	defaultDirPermission  = 0o755
	defaultFilePermission = 0o644

	datasetFileSuffix = ".dataset.json"
)

var _ dataset.Manager = (*manager)(nil)

// manager implements dataset.Manager backed by the local filesystem.
// Each dataset is stored as one JSON document under baseDir.
type manager struct {
	mu      sync.RWMutex
	baseDir string
}

// New creates a local file dataset manager rooted at baseDir.
func New(baseDir string) dataset.Manager {
	return &manager{baseDir: baseDir}
}

// Get returns the dataset identified by datasetID.
func (m *manager) Get(_ context.Context, datasetID string) (*dataset.Dataset, error) {
	if datasetID == "" {
		return nil, errors.New("dataset id is empty")
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, err := m.load(datasetID)
	if err != nil {
		return nil, fmt.Errorf("load dataset %s: %w", datasetID, err)
	}
	return d, nil
}

// Create validates and stores a new dataset.
// Returns an error if the dataset already exists.
func (m *manager) Create(_ context.Context, d *dataset.Dataset) error {
	if d == nil {
		return errors.New("dataset is nil")
	}
	if err := d.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.load(d.ID); err == nil {
		return fmt.Errorf("dataset %s already exists", d.ID)
	} else if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load dataset %s: %w", d.ID, err)
	}
	cloned, err := clone.Clone(d)
	if err != nil {
		return fmt.Errorf("clone dataset %s: %w", d.ID, err)
	}
	if cloned.CreationTimestamp.IsZero() {
		cloned.CreationTimestamp = time.Now().UTC()
	}
	if err := m.store(cloned); err != nil {
		return fmt.Errorf("store dataset %s: %w", d.ID, err)
	}
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
	d, err := m.load(datasetID)
	if err != nil {
		return fmt.Errorf("load dataset %s: %w", datasetID, err)
	}
	if d.Case(tc.ID) != nil {
		return fmt.Errorf("test case %s already exists in dataset %s", tc.ID, datasetID)
	}
	cloned, err := clone.Clone(tc)
	if err != nil {
		return fmt.Errorf("clone test case %s: %w", tc.ID, err)
	}
	d.Cases = append(d.Cases, *cloned)
	if err := m.store(d); err != nil {
		return fmt.Errorf("store dataset %s: %w", datasetID, err)
	}
	return nil
}

// List returns the ids of all stored datasets in sorted order.
func (m *manager) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", m.baseDir, err)
	}
	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), datasetFileSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), datasetFileSuffix))
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
	if _, err := m.load(datasetID); err != nil {
		return fmt.Errorf("load dataset %s: %w", datasetID, err)
	}
	path := m.datasetPath(datasetID)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove file %s: %w", path, err)
	}
	return nil
}

// datasetPath builds the path to the dataset file.
func (m *manager) datasetPath(datasetID string) string {
	return filepath.Join(m.baseDir, datasetID+datasetFileSuffix)
}

// load loads the dataset from the file system.
func (m *manager) load(datasetID string) (*dataset.Dataset, error) {
	path := m.datasetPath(datasetID)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", path, err)
	}
	var d dataset.Dataset
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal file %s: %w", path, err)
	}
	if d.Cases == nil {
		d.Cases = []dataset.TestCase{}
	}
	return &d, nil
}

// store stores the dataset to the file system atomically.
func (m *manager) store(d *dataset.Dataset) error {
	if d == nil {
		return errors.New("dataset is nil")
	}
	path := m.datasetPath(d.ID)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, defaultDirPermission); err != nil {
		return fmt.Errorf("mkdir all %s: %w", dir, err)
	}
	tmp := path + defaultTempFileSuffix
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, defaultFilePermission)
	if err != nil {
		return fmt.Errorf("open file %s: %w", tmp, err)
	}
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(d); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode file %s: %w", tmp, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename file %s to %s: %w", tmp, path, err)
	}
	return nil
}
