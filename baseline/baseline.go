//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package baseline tracks promoted reference runs per dataset and compares
// fresh evaluation reports against the active one to surface regressions.
package baseline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/metrics"
)

// ErrNoBaseline reports that a dataset has no active baseline yet. Callers
// should treat it as "capture a baseline first", not as a failure.
var ErrNoBaseline = errors.New("no active baseline")

// Metrics is the snapshot of report metrics a baseline pins for comparison.
type Metrics struct {
	// Accuracy is the mean aggregate score across scored cases, in [0, 1].
	Accuracy float64 `json:"accuracy"`
	// PassRate is the fraction of cases that passed, in [0, 1].
	PassRate float64 `json:"pass_rate"`
	// AvgLatencyMs is the mean model latency per scored case.
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	// AvgCostUSD is the mean cost per case.
	AvgCostUSD float64 `json:"avg_cost_usd"`
}

// Baseline is a promoted run used as the reference point for a dataset.
type Baseline struct {
	// ID uniquely identifies the baseline.
	ID string `json:"id"`
	// DatasetID is the dataset this baseline applies to.
	DatasetID string `json:"dataset_id"`
	// DatasetVersion pins the dataset version of the promoted run.
	DatasetVersion string `json:"dataset_version,omitempty"`
	// RunID references the promoted run.
	RunID string `json:"run_id"`
	// ModelID is the model the promoted run evaluated.
	ModelID string `json:"model_id,omitempty"`
	// Metrics is the pinned metric snapshot.
	Metrics Metrics `json:"metrics"`
	// IsActive marks the baseline currently used for comparisons. At most
	// one baseline per dataset is active.
	IsActive bool `json:"is_active"`
	// CreatedAt is when the baseline was promoted.
	CreatedAt time.Time `json:"created_at"`
}

// Validate reports whether the baseline carries the fields stores require.
func (b *Baseline) Validate() error {
	if b == nil {
		return errors.New("baseline is nil")
	}
	if b.ID == "" {
		return errors.New("baseline id is empty")
	}
	if b.DatasetID == "" {
		return errors.New("baseline dataset id is empty")
	}
	if b.RunID == "" {
		return errors.New("baseline run id is empty")
	}
	return nil
}

// NewFromRun builds a promotable baseline from a completed run and its
// report. The caller promotes it via a Manager; until then it is inactive.
func NewFromRun(run *evalrun.EvalRun, report *metrics.Report, now time.Time) (*Baseline, error) {
	if run == nil {
		return nil, errors.New("run is nil")
	}
	if report == nil {
		return nil, errors.New("report is nil")
	}
	if run.Status != evalrun.StatusCompleted {
		return nil, fmt.Errorf("run %s is %s, only completed runs can be promoted", run.ID, run.Status)
	}
	return &Baseline{
		ID:             uuid.NewString(),
		DatasetID:      run.DatasetID,
		DatasetVersion: run.DatasetVersion,
		RunID:          run.ID,
		ModelID:        run.Model.ID,
		Metrics: Metrics{
			Accuracy:     report.Accuracy,
			PassRate:     report.PassRate,
			AvgLatencyMs: report.AvgLatencyMs,
			AvgCostUSD:   averageCostUSD(report),
		},
		CreatedAt: now,
	}, nil
}

func averageCostUSD(report *metrics.Report) float64 {
	if report.TotalCases == 0 {
		return 0
	}
	return report.TotalCostUSD / float64(report.TotalCases)
}

// Manager persists baselines and tracks which one is active per dataset.
type Manager interface {
	// Promote stores b as the active baseline for its dataset and
	// deactivates the previously active one. Prior baselines are kept for
	// history, never deleted.
	Promote(ctx context.Context, b *Baseline) error
	// Active returns the active baseline for a dataset.
	// Returns an error wrapping os.ErrNotExist if none is active.
	Active(ctx context.Context, datasetID string) (*Baseline, error)
	// Get returns the baseline with the given ID.
	// Returns an error wrapping os.ErrNotExist if it does not exist.
	Get(ctx context.Context, id string) (*Baseline, error)
	// History returns all baselines for a dataset, newest first.
	History(ctx context.Context, datasetID string) ([]*Baseline, error)
}
