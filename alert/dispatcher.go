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

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
	"trpc.group/trpc-go/trpc-eval-go/log"
)

// DefaultHistoryCapacity bounds the dispatch history when no capacity is
// configured.
const DefaultHistoryCapacity = 100

// ChannelConfig pairs a channel with its delivery policy.
type ChannelConfig struct {
	// Channel is the delivery target.
	Channel Channel
	// MinSeverity is the least severe event the channel receives.
	MinSeverity baseline.Severity
}

// HistoryEntry records one dispatched event and the delivery failures it hit.
type HistoryEntry struct {
	// Event is the dispatched event.
	Event Event
	// DeliveryErrors maps channel name to failure message for channels
	// that did not accept the event. Empty when every delivery succeeded.
	DeliveryErrors map[string]string
}

// Dispatcher fans events out to its channels concurrently and keeps a
// bounded history of what it dispatched.
type Dispatcher struct {
	mu       sync.Mutex
	channels []ChannelConfig
	history  []*HistoryEntry
	capacity int
}

// DispatcherOption configures a dispatcher.
type DispatcherOption func(*Dispatcher)

// WithChannel registers a channel that receives events at or above
// minSeverity.
func WithChannel(ch Channel, minSeverity baseline.Severity) DispatcherOption {
	return func(d *Dispatcher) {
		d.channels = append(d.channels, ChannelConfig{Channel: ch, MinSeverity: minSeverity})
	}
}

// WithHistoryCapacity bounds the dispatch history. Values below one keep
// the default.
func WithHistoryCapacity(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.capacity = n
		}
	}
}

// NewDispatcher creates a dispatcher. A dispatcher without channels still
// records history, which suits runs where alerting is disabled.
func NewDispatcher(opt ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{capacity: DefaultHistoryCapacity}
	for _, o := range opt {
		o(d)
	}
	return d
}

// Dispatch records the event in the history and delivers it to every
// channel whose severity floor it meets, concurrently. Channel failures do
// not affect one another; the returned error aggregates every failed
// delivery, and nil means all deliveries succeeded.
func (d *Dispatcher) Dispatch(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("alert event is nil")
	}

	entry := &HistoryEntry{Event: *event}
	d.mu.Lock()
	d.history = append(d.history, entry)
	if len(d.history) > d.capacity {
		d.history = d.history[len(d.history)-d.capacity:]
	}
	channels := make([]ChannelConfig, len(d.channels))
	copy(channels, d.channels)
	d.mu.Unlock()

	// Workers report through the indexed slice so one failing channel
	// cannot cancel or mask its siblings.
	errs := make([]error, len(channels))
	var g errgroup.Group
	for i, cc := range channels {
		if event.Severity < cc.MinSeverity {
			continue
		}
		g.Go(func() error {
			errs[i] = cc.Channel.Send(ctx, event)
			return nil
		})
	}
	_ = g.Wait()

	var merged *multierror.Error
	deliveryErrors := make(map[string]string)
	for i, err := range errs {
		if err == nil {
			continue
		}
		name := channels[i].Channel.Name()
		deliveryErrors[name] = err.Error()
		log.Errorf("alert delivery to channel %s failed: %v", name, err)
		merged = multierror.Append(merged, fmt.Errorf("channel %s: %w", name, err))
	}
	if len(deliveryErrors) > 0 {
		d.mu.Lock()
		entry.DeliveryErrors = deliveryErrors
		d.mu.Unlock()
	}
	return merged.ErrorOrNil()
}

// History returns the recorded entries, most recent first.
func (d *Dispatcher) History() []HistoryEntry {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]HistoryEntry, 0, len(d.history))
	for i := len(d.history) - 1; i >= 0; i-- {
		entry := HistoryEntry{Event: d.history[i].Event}
		if len(d.history[i].DeliveryErrors) > 0 {
			entry.DeliveryErrors = make(map[string]string, len(d.history[i].DeliveryErrors))
			for k, v := range d.history[i].DeliveryErrors {
				entry.DeliveryErrors[k] = v
			}
		}
		out = append(out, entry)
	}
	return out
}
