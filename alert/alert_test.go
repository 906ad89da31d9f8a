//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package alert

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
	"trpc.group/trpc-go/trpc-eval-go/cost"
)

var eventTime = time.Date(2025, 8, 18, 10, 30, 0, 0, time.UTC)

// TestNewRegressionEvent verifies the event carries the regression verbatim.
func TestNewRegressionEvent(t *testing.T) {
	reg := baseline.Regression{
		Metric:        baseline.MetricAccuracy,
		Severity:      baseline.SeverityCritical,
		BaselineValue: 0.945,
		CurrentValue:  0.835,
		Delta:         -0.11,
		Message:       "accuracy dropped 11.0 points, from 94.5% to 83.5%",
	}

	event := NewRegressionEvent("qa-v1", "run-1", reg, eventTime)

	assert.NotEmpty(t, event.ID)
	assert.Equal(t, TypeRegression, event.Type)
	assert.Equal(t, baseline.SeverityCritical, event.Severity)
	assert.Equal(t, "qa-v1", event.DatasetID)
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, baseline.MetricAccuracy, event.Metric)
	assert.Equal(t, 0.945, event.BaselineValue)
	assert.Equal(t, 0.835, event.CurrentValue)
	assert.Equal(t, -0.11, event.Delta)
	assert.Equal(t, reg.Message, event.Message)
	assert.Equal(t, eventTime, event.Timestamp)
}

// TestNewBudgetEvent verifies severity mapping for budget crossings:
// reaching the alert threshold is major, exceeding the limit is critical.
func TestNewBudgetEvent(t *testing.T) {
	threshold := NewBudgetEvent(cost.Event{
		Type:             cost.EventThresholdCrossed,
		Period:           cost.PeriodDaily,
		WindowStart:      eventTime.Truncate(24 * time.Hour),
		SpendUSD:         0.875,
		LimitUSD:         1.0,
		ThresholdPercent: 80,
	}, eventTime)

	assert.Equal(t, TypeBudget, threshold.Type)
	assert.Equal(t, baseline.SeverityMajor, threshold.Severity)
	assert.Equal(t, 0.875, threshold.SpendUSD)
	assert.Equal(t, 1.0, threshold.LimitUSD)
	assert.Equal(t, "daily", threshold.Period)
	assert.Contains(t, threshold.Message, "daily budget at 88%")
	assert.Contains(t, threshold.Message, "$0.8750 of $1.0000 spent")

	exceeded := NewBudgetEvent(cost.Event{
		Type:             cost.EventBudgetExceeded,
		Period:           cost.PeriodDaily,
		SpendUSD:         1.25,
		LimitUSD:         1.0,
		ThresholdPercent: 100,
	}, eventTime)

	assert.Equal(t, baseline.SeverityCritical, exceeded.Severity)
	assert.Contains(t, exceeded.Message, "daily budget at 125%")
}

// TestNewRunFailureEvent verifies run failures are always critical and the
// message includes the cause when one exists.
func TestNewRunFailureEvent(t *testing.T) {
	event := NewRunFailureEvent("qa-v1", "run-1", errors.New("provider unreachable"), eventTime)

	assert.Equal(t, TypeRunFailure, event.Type)
	assert.Equal(t, baseline.SeverityCritical, event.Severity)
	assert.Equal(t, "qa-v1", event.DatasetID)
	assert.Equal(t, "run-1", event.RunID)
	assert.Equal(t, "evaluation run run-1 failed: provider unreachable", event.Message)

	bare := NewRunFailureEvent("qa-v1", "run-2", nil, eventTime)
	assert.Equal(t, "evaluation run run-2 failed", bare.Message)
}

// TestEvent_JSON verifies events encode severity as a name and omit fields
// that do not apply to the event type.
func TestEvent_JSON(t *testing.T) {
	event := NewRunFailureEvent("qa-v1", "run-1", errors.New("boom"), eventTime)

	payload, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Contains(t, string(payload), `"severity":"critical"`)
	assert.Contains(t, string(payload), `"type":"run_failure"`)
	assert.NotContains(t, string(payload), "metric")
	assert.NotContains(t, string(payload), "spend_usd")
}
