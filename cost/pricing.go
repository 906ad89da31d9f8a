//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package cost

import "sync"

// Per-1M-token list prices for the preloaded models.
const (
	gpt4oInputPer1M  = 2.5
	gpt4oOutputPer1M = 10.0

	gpt4oMiniInputPer1M  = 0.15
	gpt4oMiniOutputPer1M = 0.60

	claudeSonnetInputPer1M  = 3.0
	claudeSonnetOutputPer1M = 15.0
)

// ModelPricing holds per-1K-token pricing for one model.
type ModelPricing struct {
	// InputPer1KTokens is the prompt-side price per thousand tokens.
	InputPer1KTokens float64
	// OutputPer1KTokens is the completion-side price per thousand tokens.
	OutputPer1KTokens float64
}

// PriceTable maps model IDs to token pricing. It satisfies the runner's
// pricing hook so results carry a cost estimate as they are produced.
type PriceTable struct {
	mu      sync.RWMutex
	pricing map[string]ModelPricing
}

// NewPriceTable creates a price table preloaded with list prices for common
// models. Unknown models estimate to zero until registered.
func NewPriceTable() *PriceTable {
	t := &PriceTable{pricing: make(map[string]ModelPricing)}
	t.Register("gpt-4o", ModelPricing{
		InputPer1KTokens:  gpt4oInputPer1M / 1000.0,
		OutputPer1KTokens: gpt4oOutputPer1M / 1000.0,
	})
	t.Register("gpt-4o-mini", ModelPricing{
		InputPer1KTokens:  gpt4oMiniInputPer1M / 1000.0,
		OutputPer1KTokens: gpt4oMiniOutputPer1M / 1000.0,
	})
	t.Register("claude-sonnet-4-20250514", ModelPricing{
		InputPer1KTokens:  claudeSonnetInputPer1M / 1000.0,
		OutputPer1KTokens: claudeSonnetOutputPer1M / 1000.0,
	})
	return t
}

// Register adds or overrides pricing for a model ID.
func (t *PriceTable) Register(modelID string, pricing ModelPricing) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pricing[modelID] = pricing
}

// EstimateUSD returns the estimated cost for the given token usage, zero when
// the model has no registered pricing.
func (t *PriceTable) EstimateUSD(modelID string, promptTokens, completionTokens int) float64 {
	t.mu.RLock()
	p, ok := t.pricing[modelID]
	t.mu.RUnlock()
	if !ok {
		return 0
	}
	inputCost := float64(promptTokens) * p.InputPer1KTokens / 1000.0
	outputCost := float64(completionTokens) * p.OutputPer1KTokens / 1000.0
	return inputCost + outputCost
}
