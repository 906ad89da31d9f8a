//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package evaluation

import (
	"context"
	"errors"
	"fmt"
)

// ModelComparison is the outcome of evaluating several model configurations
// over the same dataset.
type ModelComparison struct {
	// DatasetID is the dataset every candidate ran against.
	DatasetID string `json:"dataset_id"`
	// Outcomes holds one run outcome per candidate, in request order.
	Outcomes []*RunOutcome `json:"outcomes"`
	// Winner is the model ID of the highest-accuracy run. Ties keep the
	// earlier candidate.
	Winner string `json:"winner"`
}

// CompareModels evaluates each configuration against the dataset, one after
// another so cost accounting and rate limits stay deterministic, and names
// the winner by report accuracy.
func (e *Evaluator) CompareModels(ctx context.Context, datasetID string, cfgs []RunConfig) (*ModelComparison, error) {
	if len(cfgs) < 2 {
		return nil, errors.New("model comparison needs at least two run configs")
	}
	comparison := &ModelComparison{
		DatasetID: datasetID,
		Outcomes:  make([]*RunOutcome, 0, len(cfgs)),
	}
	best := -1.0
	for i, cfg := range cfgs {
		outcome, err := e.Run(ctx, datasetID, cfg)
		if err != nil {
			return nil, fmt.Errorf("candidate %d (%s): %w", i+1, cfg.Model.ID, err)
		}
		comparison.Outcomes = append(comparison.Outcomes, outcome)
		if outcome.Report.Accuracy > best {
			best = outcome.Report.Accuracy
			comparison.Winner = outcome.Run.Model.ID
		}
	}
	return comparison, nil
}
