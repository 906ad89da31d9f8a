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
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
)

type fakeChannel struct {
	name string
	err  error

	mu     sync.Mutex
	events []Event
}

func (c *fakeChannel) Name() string { return c.name }

func (c *fakeChannel) Send(_ context.Context, event *Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, *event)
	return c.err
}

func (c *fakeChannel) received() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

func eventWithSeverity(sev baseline.Severity) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      TypeRegression,
		Severity:  sev,
		DatasetID: "qa-v1",
		RunID:     "run-1",
		Message:   "accuracy dropped 6.0 points, from 94.5% to 88.5%",
		Timestamp: eventTime,
	}
}

// TestDispatch_FansOutToAllChannels verifies every eligible channel gets the
// event and the dispatch is recorded.
func TestDispatch_FansOutToAllChannels(t *testing.T) {
	first := &fakeChannel{name: "webhook"}
	second := &fakeChannel{name: "email"}
	d := NewDispatcher(
		WithChannel(first, baseline.SeverityMinor),
		WithChannel(second, baseline.SeverityMinor),
	)

	event := eventWithSeverity(baseline.SeverityMajor)
	require.NoError(t, d.Dispatch(context.Background(), event))

	require.Len(t, first.received(), 1)
	require.Len(t, second.received(), 1)
	assert.Equal(t, event.ID, first.received()[0].ID)

	history := d.History()
	require.Len(t, history, 1)
	assert.Equal(t, event.ID, history[0].Event.ID)
	assert.Empty(t, history[0].DeliveryErrors)
}

// TestDispatch_SeverityFloor verifies channels only see events at or above
// their configured severity.
func TestDispatch_SeverityFloor(t *testing.T) {
	pager := &fakeChannel{name: "pager"}
	mail := &fakeChannel{name: "email"}
	d := NewDispatcher(
		WithChannel(pager, baseline.SeverityCritical),
		WithChannel(mail, baseline.SeverityMinor),
	)

	require.NoError(t, d.Dispatch(context.Background(), eventWithSeverity(baseline.SeverityMajor)))
	assert.Empty(t, pager.received())
	assert.Len(t, mail.received(), 1)

	require.NoError(t, d.Dispatch(context.Background(), eventWithSeverity(baseline.SeverityCritical)))
	assert.Len(t, pager.received(), 1)
	assert.Len(t, mail.received(), 2)

	// Filtered events are still part of the history.
	assert.Len(t, d.History(), 2)
}

// TestDispatch_ChannelFailureIsIsolated verifies one failing channel neither
// blocks its siblings nor hides its error.
func TestDispatch_ChannelFailureIsIsolated(t *testing.T) {
	broken := &fakeChannel{name: "webhook", err: errors.New("connection refused")}
	healthy := &fakeChannel{name: "email"}
	d := NewDispatcher(
		WithChannel(broken, baseline.SeverityMinor),
		WithChannel(healthy, baseline.SeverityMinor),
	)

	err := d.Dispatch(context.Background(), eventWithSeverity(baseline.SeverityCritical))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel webhook")
	assert.Contains(t, err.Error(), "connection refused")

	assert.Len(t, healthy.received(), 1)

	history := d.History()
	require.Len(t, history, 1)
	require.Contains(t, history[0].DeliveryErrors, "webhook")
	assert.Contains(t, history[0].DeliveryErrors["webhook"], "connection refused")
	assert.NotContains(t, history[0].DeliveryErrors, "email")
}

// TestDispatch_NilEvent verifies nil events are rejected.
func TestDispatch_NilEvent(t *testing.T) {
	d := NewDispatcher()
	err := d.Dispatch(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "event is nil")
}

// TestHistory_BoundedNewestFirst verifies the ring drops the oldest entries
// and returns the rest most recent first.
func TestHistory_BoundedNewestFirst(t *testing.T) {
	d := NewDispatcher(WithHistoryCapacity(3))

	for i := 0; i < 5; i++ {
		event := eventWithSeverity(baseline.SeverityMinor)
		event.RunID = fmt.Sprintf("run-%d", i)
		require.NoError(t, d.Dispatch(context.Background(), event))
	}

	history := d.History()
	require.Len(t, history, 3)
	assert.Equal(t, "run-4", history[0].Event.RunID)
	assert.Equal(t, "run-3", history[1].Event.RunID)
	assert.Equal(t, "run-2", history[2].Event.RunID)
}

// TestHistory_ReturnsCopies verifies callers cannot mutate recorded entries.
func TestHistory_ReturnsCopies(t *testing.T) {
	broken := &fakeChannel{name: "webhook", err: errors.New("boom")}
	d := NewDispatcher(WithChannel(broken, baseline.SeverityMinor))

	_ = d.Dispatch(context.Background(), eventWithSeverity(baseline.SeverityMajor))

	history := d.History()
	require.Len(t, history, 1)
	history[0].Event.Message = "tampered"
	history[0].DeliveryErrors["webhook"] = "tampered"
	history[0].DeliveryErrors["extra"] = "tampered"

	fresh := d.History()
	assert.Contains(t, fresh[0].Event.Message, "accuracy dropped")
	assert.Equal(t, "boom", fresh[0].DeliveryErrors["webhook"])
	assert.NotContains(t, fresh[0].DeliveryErrors, "extra")
}
