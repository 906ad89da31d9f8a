//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package alert turns regressions, budget crossings and run failures into
// events and delivers them through configured notification channels.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
	"trpc.group/trpc-go/trpc-eval-go/cost"
)

// EventType discriminates alert events.
type EventType string

const (
	// TypeRegression marks a metric regression against the baseline.
	TypeRegression EventType = "regression"
	// TypeBudget marks a budget threshold or limit crossing.
	TypeBudget EventType = "budget"
	// TypeRunFailure marks a run that aborted with a fatal error.
	TypeRunFailure EventType = "run_failure"
)

// Event is one alertable occurrence. Fields irrelevant to the event type
// stay zero and are omitted from the wire encoding.
type Event struct {
	// ID uniquely identifies the event.
	ID string `json:"id"`
	// Type is the event kind.
	Type EventType `json:"type"`
	// Severity grades the event for channel policies.
	Severity baseline.Severity `json:"severity"`
	// DatasetID is the dataset concerned, when known.
	DatasetID string `json:"dataset_id,omitempty"`
	// RunID is the run concerned, when known.
	RunID string `json:"run_id,omitempty"`
	// Metric names the regressed metric for regression events.
	Metric string `json:"metric,omitempty"`
	// BaselineValue is the regressed metric's baseline value.
	BaselineValue float64 `json:"baseline_value,omitempty"`
	// CurrentValue is the regressed metric's current value.
	CurrentValue float64 `json:"current_value,omitempty"`
	// Delta is CurrentValue minus BaselineValue.
	Delta float64 `json:"delta,omitempty"`
	// SpendUSD is the window spend for budget events.
	SpendUSD float64 `json:"spend_usd,omitempty"`
	// LimitUSD is the budget cap for budget events.
	LimitUSD float64 `json:"limit_usd,omitempty"`
	// Period is the budget window recurrence for budget events.
	Period string `json:"period,omitempty"`
	// Message is the human-readable one-liner.
	Message string `json:"message"`
	// ReportURL links to the run report, when a dashboard is configured.
	ReportURL string `json:"report_url,omitempty"`
	// Timestamp is when the event was raised.
	Timestamp time.Time `json:"timestamp"`
}

// NewRegressionEvent builds an alert event from a baseline regression. The
// event keeps the regression's severity.
func NewRegressionEvent(datasetID, runID string, reg baseline.Regression, now time.Time) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          TypeRegression,
		Severity:      reg.Severity,
		DatasetID:     datasetID,
		RunID:         runID,
		Metric:        reg.Metric,
		BaselineValue: reg.BaselineValue,
		CurrentValue:  reg.CurrentValue,
		Delta:         reg.Delta,
		Message:       reg.Message,
		Timestamp:     now,
	}
}

// NewBudgetEvent builds an alert event from a budget crossing. Threshold
// crossings are major, exceeding the limit is critical.
func NewBudgetEvent(ev cost.Event, now time.Time) *Event {
	severity := baseline.SeverityMajor
	if ev.Type == cost.EventBudgetExceeded {
		severity = baseline.SeverityCritical
	}
	return &Event{
		ID:       uuid.NewString(),
		Type:     TypeBudget,
		Severity: severity,
		SpendUSD: ev.SpendUSD,
		LimitUSD: ev.LimitUSD,
		Period:   ev.Period.String(),
		Message: fmt.Sprintf("%s budget at %.0f%%: $%.4f of $%.4f spent",
			ev.Period, ev.SpendUSD/ev.LimitUSD*100, ev.SpendUSD, ev.LimitUSD),
		Timestamp: now,
	}
}

// NewRunFailureEvent builds a critical alert event for an aborted run.
func NewRunFailureEvent(datasetID, runID string, runErr error, now time.Time) *Event {
	message := fmt.Sprintf("evaluation run %s failed", runID)
	if runErr != nil {
		message = fmt.Sprintf("evaluation run %s failed: %v", runID, runErr)
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      TypeRunFailure,
		Severity:  baseline.SeverityCritical,
		DatasetID: datasetID,
		RunID:     runID,
		Message:   message,
		Timestamp: now,
	}
}

// Channel delivers events to one destination.
type Channel interface {
	// Name identifies the channel in logs and history entries.
	Name() string
	// Send delivers one event. Implementations own their retry policy.
	Send(ctx context.Context, event *Event) error
}
