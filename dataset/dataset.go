//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package dataset provides versioned test case collections for evaluation runs.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/hashicorp/go-multierror"
)

// TestCase is a single evaluation case. Once part of a stored dataset
// version it is immutable; managers hand out deep clones.
type TestCase struct {
	// ID uniquely identifies the case within its dataset.
	ID string `json:"id" yaml:"id"`
	// Name is a human-readable case name.
	Name string `json:"name" yaml:"name"`
	// Category groups cases for per-category metrics.
	Category string `json:"category,omitempty" yaml:"category,omitempty"`
	// Input is the value sent to the model under test.
	Input any `json:"input" yaml:"input"`
	// Expected is the reference value scorers compare against.
	Expected any `json:"expected,omitempty" yaml:"expected,omitempty"`
	// Tags carry free-form labels.
	Tags []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	// Difficulty is an optional ordinal rating, zero when unset.
	Difficulty int `json:"difficulty,omitempty" yaml:"difficulty,omitempty"`
}

// Dataset is an ordered collection of test cases under one version.
type Dataset struct {
	// ID uniquely identifies the dataset.
	ID string `json:"id" yaml:"id"`
	// Name of the dataset.
	Name string `json:"name" yaml:"name"`
	// Description of the dataset.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	// Version is a semantic version string for the published collection.
	Version string `json:"version" yaml:"version"`
	// Cases contains the ordered test cases; ids are unique within the dataset.
	Cases []TestCase `json:"cases" yaml:"cases"`
	// CreationTimestamp when this dataset was created.
	CreationTimestamp time.Time `json:"creation_timestamp,omitempty" yaml:"creation_timestamp,omitempty"`
}

// Manager defines the interface for managing datasets.
type Manager interface {
	// Get returns the dataset identified by datasetID.
	Get(ctx context.Context, datasetID string) (*Dataset, error)
	// Create validates and stores a new dataset.
	Create(ctx context.Context, d *Dataset) error
	// AddCase appends a test case to an existing dataset, keeping ids unique.
	AddCase(ctx context.Context, datasetID string, tc *TestCase) error
	// List returns the ids of all stored datasets.
	List(ctx context.Context) ([]string, error)
	// Delete removes the dataset identified by datasetID.
	Delete(ctx context.Context, datasetID string) error
}

// ValidationError aggregates every validation issue found in a dataset
// document. The run treating the dataset is failed before any case executes.
type ValidationError struct {
	// DatasetID is the id of the offending dataset, possibly empty.
	DatasetID string
	// Err holds all collected issues.
	Err error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("dataset %q invalid: %v", e.DatasetID, e.Err)
}

// Unwrap exposes the aggregated issues for errors.Is/As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Issues returns the individual validation issues.
func (e *ValidationError) Issues() []error {
	var merr *multierror.Error
	if errors.As(e.Err, &merr) {
		return merr.Errors
	}
	return []error{e.Err}
}

var semverRe = regexp.MustCompile(`^v?\d+\.\d+\.\d+([-+][0-9A-Za-z.-]+)?$`)

// Validate checks the dataset document and reports every violation found,
// not just the first one. A nil return means the dataset is usable.
func (d *Dataset) Validate() error {
	var merr *multierror.Error
	if d.ID == "" {
		merr = multierror.Append(merr, fmt.Errorf("dataset id is empty"))
	}
	if d.Name == "" {
		merr = multierror.Append(merr, fmt.Errorf("dataset name is empty"))
	}
	if d.Version == "" {
		merr = multierror.Append(merr, fmt.Errorf("dataset version is empty"))
	} else if !semverRe.MatchString(d.Version) {
		merr = multierror.Append(merr, fmt.Errorf("dataset version %q is not a semantic version", d.Version))
	}
	if len(d.Cases) == 0 {
		merr = multierror.Append(merr, fmt.Errorf("dataset has no test cases"))
	}
	seen := make(map[string]int, len(d.Cases))
	for i, tc := range d.Cases {
		if tc.ID == "" {
			merr = multierror.Append(merr, fmt.Errorf("case %d: id is empty", i))
			continue
		}
		if prev, dup := seen[tc.ID]; dup {
			merr = multierror.Append(merr, fmt.Errorf("duplicate test case id %q (cases %d and %d)", tc.ID, prev, i))
		} else {
			seen[tc.ID] = i
		}
		if tc.Name == "" {
			merr = multierror.Append(merr, fmt.Errorf("case %q: name is empty", tc.ID))
		}
		if tc.Input == nil {
			merr = multierror.Append(merr, fmt.Errorf("case %q: input is empty", tc.ID))
		}
	}
	if merr == nil {
		return nil
	}
	return &ValidationError{DatasetID: d.ID, Err: merr}
}

// Case returns the test case with the given id, or nil when absent.
func (d *Dataset) Case(id string) *TestCase {
	for i := range d.Cases {
		if d.Cases[i].ID == id {
			return &d.Cases[i]
		}
	}
	return nil
}
