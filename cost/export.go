//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package cost

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"
)

// WindowStatus is the exported state of one budget window.
type WindowStatus struct {
	// Period is the window recurrence.
	Period Period `json:"period"`
	// WindowStart is the UTC start of the current window.
	WindowStart time.Time `json:"window_start"`
	// SpendUSD is the window's running spend.
	SpendUSD float64 `json:"spend_usd"`
	// LimitUSD is the budget cap.
	LimitUSD float64 `json:"limit_usd"`
	// ThresholdFired reports whether the warning already fired this window.
	ThresholdFired bool `json:"threshold_fired"`
	// ExceededFired reports whether the cap crossing already fired this window.
	ExceededFired bool `json:"exceeded_fired"`
}

// Snapshot is a structured export of the tracker's state.
type Snapshot struct {
	// Totals is the grand total.
	Totals Totals `json:"totals"`
	// Drivers maps each dimension to its values, highest spend first.
	Drivers map[string][]Driver `json:"drivers"`
	// Windows lists the budget windows that have accumulated spend.
	Windows []WindowStatus `json:"windows,omitempty"`
}

// Snapshot exports the tracker's accumulated state.
func (t *Tracker) Snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	snap := &Snapshot{
		Totals:  t.totals,
		Drivers: make(map[string][]Driver, len(t.dimensions)),
	}
	for _, dimension := range t.dimensions {
		snap.Drivers[dimension] = t.sortedDrivers(dimension)
	}
	for _, b := range t.budgets {
		w := t.windows[b.Period]
		if w == nil {
			continue
		}
		snap.Windows = append(snap.Windows, WindowStatus{
			Period:         b.Period,
			WindowStart:    w.start,
			SpendUSD:       w.spendUSD,
			LimitUSD:       b.LimitUSD,
			ThresholdFired: w.thresholdFired,
			ExceededFired:  w.exceededFired,
		})
	}
	sort.Slice(snap.Windows, func(i, j int) bool {
		return snap.Windows[i].Period < snap.Windows[j].Period
	})
	return snap
}

// WriteCSV writes the per-dimension breakdown and a trailing total row as
// CSV.
func (t *Tracker) WriteCSV(w io.Writer) error {
	snap := t.Snapshot()
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"dimension", "value", "cases", "prompt_tokens", "completion_tokens", "spend_usd",
	}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	dimensions := make([]string, 0, len(snap.Drivers))
	for dimension := range snap.Drivers {
		dimensions = append(dimensions, dimension)
	}
	sort.Strings(dimensions)
	for _, dimension := range dimensions {
		for _, d := range snap.Drivers[dimension] {
			if err := cw.Write([]string{
				d.Dimension,
				d.Value,
				strconv.Itoa(d.Cases),
				strconv.Itoa(d.PromptTokens),
				strconv.Itoa(d.CompletionTokens),
				formatUSD(d.SpendUSD),
			}); err != nil {
				return fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	if err := cw.Write([]string{
		"total",
		"",
		strconv.Itoa(snap.Totals.Cases),
		strconv.Itoa(snap.Totals.PromptTokens),
		strconv.Itoa(snap.Totals.CompletionTokens),
		formatUSD(snap.Totals.SpendUSD),
	}); err != nil {
		return fmt.Errorf("write csv total: %w", err)
	}
	cw.Flush()
	return cw.Error()
}

func formatUSD(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
