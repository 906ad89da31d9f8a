//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package evalrun defines the evaluation run record: per-case results, token
// and cost accounting, and the run lifecycle status.
package evalrun

import (
	"context"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// Status represents the lifecycle state of an evaluation run.
type Status int

const (
	// StatusPending represents a run that has not started yet.
	StatusPending Status = iota
	// StatusRunning represents a run in progress.
	StatusRunning
	// StatusCompleted represents a run that finished every test case.
	StatusCompleted
	// StatusFailed represents a run aborted by a fatal error.
	StatusFailed
	// StatusCancelled represents a run stopped cooperatively, with partial
	// results preserved.
	StatusCancelled
)

// String returns the string representation of the run status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// ModelConfig identifies the model under evaluation and its sampling knobs.
type ModelConfig struct {
	// ID is the model identifier, e.g. "gpt-4o-mini".
	ID string `json:"id"`
	// Provider names the backing provider implementation.
	Provider string `json:"provider,omitempty"`
	// Temperature overrides the provider default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens caps completions when non-nil.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// ResultMetadata carries the execution facts of one test case.
type ResultMetadata struct {
	// ModelID is the model that produced the output.
	ModelID string `json:"model_id,omitempty"`
	// LatencyMs is the wall time of the successful model call.
	LatencyMs int64 `json:"latency_ms"`
	// CostUSD is the estimated cost of the call.
	CostUSD float64 `json:"cost_usd"`
	// PromptTokens is the number of tokens sent.
	PromptTokens int `json:"prompt_tokens,omitempty"`
	// CompletionTokens is the number of tokens produced.
	CompletionTokens int `json:"completion_tokens,omitempty"`
	// Timestamp is when the case finished.
	Timestamp time.Time `json:"timestamp"`
	// Attempts counts model invocations including retries.
	Attempts int `json:"attempts,omitempty"`
	// Error holds the final failure when the case never produced a result.
	Error string `json:"error,omitempty"`
}

// TestCaseResult is the outcome of one test case in a run.
type TestCaseResult struct {
	// TestCaseID references the dataset case.
	TestCaseID string `json:"test_case_id"`
	// Category copies the case category for aggregation.
	Category string `json:"category,omitempty"`
	// ScorerResults holds one result per configured scorer, in the order
	// the scorers were applied.
	ScorerResults []*scorer.Result `json:"scorer_results,omitempty"`
	// Passed is the combined verdict across scorers.
	Passed bool `json:"passed"`
	// Metadata carries execution facts.
	Metadata ResultMetadata `json:"metadata"`
}

// Errored reports whether the case failed to execute at all.
func (r *TestCaseResult) Errored() bool {
	return r.Metadata.Error != ""
}

// ScorerResult returns the named scorer's result, or nil when the scorer did
// not run for this case.
func (r *TestCaseResult) ScorerResult(name string) *scorer.Result {
	for _, sr := range r.ScorerResults {
		if sr != nil && sr.ScorerName == name {
			return sr
		}
	}
	return nil
}

// EvalRun is one evaluation of one model over one dataset.
type EvalRun struct {
	// ID uniquely identifies the run.
	ID string `json:"id"`
	// DatasetID references the evaluated dataset.
	DatasetID string `json:"dataset_id"`
	// DatasetVersion pins the dataset version the run saw.
	DatasetVersion string `json:"dataset_version,omitempty"`
	// Model identifies the model under evaluation.
	Model ModelConfig `json:"model"`
	// Status is the run lifecycle state.
	Status Status `json:"status"`
	// StartedAt is when execution began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the run reached a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	// Results holds one entry per executed test case, in dataset order.
	Results []*TestCaseResult `json:"results,omitempty"`
	// Error holds the fatal error for failed runs.
	Error string `json:"error,omitempty"`
}

// Duration returns the wall time of the run, zero while it is still going.
func (r *EvalRun) Duration() time.Duration {
	if r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(r.StartedAt)
}

// NewRunID generates a unique run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Manager persists evaluation runs. Save is an upsert so callers can persist
// both the initial running state and the terminal state under one ID.
type Manager interface {
	// Save stores or replaces a run.
	Save(ctx context.Context, run *EvalRun) error
	// Get returns the run with the given ID.
	// Returns an error wrapping os.ErrNotExist if the run does not exist.
	Get(ctx context.Context, runID string) (*EvalRun, error)
	// Latest returns the most recently started run matching datasetID and
	// modelID, either of which may be empty to match any.
	// Returns an error wrapping os.ErrNotExist if nothing matches.
	Latest(ctx context.Context, datasetID, modelID string) (*EvalRun, error)
	// List returns all run IDs, ordered by start time ascending.
	List(ctx context.Context) ([]string, error)
	// Delete removes a run.
	// Returns an error wrapping os.ErrNotExist if the run does not exist.
	Delete(ctx context.Context, runID string) error
}
