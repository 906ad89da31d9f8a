//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package cost accumulates evaluation spend into budget windows and
// per-dimension breakdowns, emitting events when budgets are crossed.
package cost

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
)

// Period is the recurrence of a budget window.
type Period int

const (
	// PeriodHourly resets the window every hour.
	PeriodHourly Period = iota
	// PeriodDaily resets the window every day.
	PeriodDaily
	// PeriodWeekly resets the window every ISO week, starting Monday.
	PeriodWeekly
	// PeriodMonthly resets the window on the first of each month.
	PeriodMonthly
)

// String returns the lowercase name of the period.
func (p Period) String() string {
	switch p {
	case PeriodHourly:
		return "hourly"
	case PeriodDaily:
		return "daily"
	case PeriodWeekly:
		return "weekly"
	case PeriodMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// ParsePeriod parses a period name as it appears in configuration.
func ParsePeriod(s string) (Period, error) {
	switch s {
	case "hourly":
		return PeriodHourly, nil
	case "daily":
		return PeriodDaily, nil
	case "weekly":
		return PeriodWeekly, nil
	case "monthly":
		return PeriodMonthly, nil
	default:
		return 0, fmt.Errorf("unknown budget period %q", s)
	}
}

// MarshalJSON encodes the period as its name.
func (p Period) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a period from its name.
func (p *Period) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	period, err := ParsePeriod(s)
	if err != nil {
		return err
	}
	*p = period
	return nil
}

// truncate returns the UTC start of the window containing t.
func (p Period) truncate(t time.Time) time.Time {
	t = t.UTC()
	switch p {
	case PeriodHourly:
		return t.Truncate(time.Hour)
	case PeriodDaily:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodWeekly:
		daysSinceMonday := (int(t.Weekday()) + 6) % 7
		monday := t.AddDate(0, 0, -daysSinceMonday)
		return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	case PeriodMonthly:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return t
	}
}

// DefaultAlertThresholdPercent is the warning threshold applied when a budget
// does not set one.
const DefaultAlertThresholdPercent = 80.0

// Budget caps spend for one recurring window.
type Budget struct {
	// Period is the window recurrence.
	Period Period `json:"period"`
	// LimitUSD is the spend cap for the window.
	LimitUSD float64 `json:"limit_usd"`
	// AlertThresholdPercent is the percentage of LimitUSD at which a warning
	// event fires. Defaults to DefaultAlertThresholdPercent when zero.
	AlertThresholdPercent float64 `json:"alert_threshold_percent,omitempty"`
}

// EventType discriminates budget events.
type EventType int

const (
	// EventThresholdCrossed fires once per window when spend reaches the
	// alert threshold.
	EventThresholdCrossed EventType = iota
	// EventBudgetExceeded fires once per window when spend reaches the limit.
	EventBudgetExceeded
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventThresholdCrossed:
		return "budget_threshold"
	case EventBudgetExceeded:
		return "budget_exceeded"
	default:
		return "unknown"
	}
}

// Event reports a budget crossing. Each event type fires at most once per
// window; the flags re-arm when the window rolls over.
type Event struct {
	// Type is the crossing kind.
	Type EventType `json:"type"`
	// Period is the budget window recurrence.
	Period Period `json:"period"`
	// WindowStart is the UTC start of the crossed window.
	WindowStart time.Time `json:"window_start"`
	// SpendUSD is the window's running spend when the event fired.
	SpendUSD float64 `json:"spend_usd"`
	// LimitUSD is the budget cap.
	LimitUSD float64 `json:"limit_usd"`
	// ThresholdPercent is the crossed percentage of the cap: the configured
	// alert threshold for threshold events, 100 for exceeded events.
	ThresholdPercent float64 `json:"threshold_percent"`
}

// Breakdown dimension names.
const (
	// DimensionModel groups spend by model ID.
	DimensionModel = "model"
	// DimensionDataset groups spend by dataset ID.
	DimensionDataset = "dataset"
	// DimensionTimeBucket groups spend by UTC day.
	DimensionTimeBucket = "time_bucket"
)

func defaultDimensions() []string {
	return []string{DimensionModel, DimensionDataset, DimensionTimeBucket}
}

// Totals is the tracker's running grand total.
type Totals struct {
	// SpendUSD is the accumulated cost.
	SpendUSD float64 `json:"spend_usd"`
	// PromptTokens is the accumulated prompt token count.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens is the accumulated completion token count.
	CompletionTokens int `json:"completion_tokens"`
	// Cases is the number of accumulated results.
	Cases int `json:"cases"`
}

// Driver is one dimension value with its accumulated spend.
type Driver struct {
	// Dimension is the breakdown dimension name.
	Dimension string `json:"dimension"`
	// Value is the dimension value, e.g. a model ID.
	Value string `json:"value"`
	// SpendUSD is the value's accumulated cost.
	SpendUSD float64 `json:"spend_usd"`
	// PromptTokens is the value's accumulated prompt token count.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens is the value's accumulated completion token count.
	CompletionTokens int `json:"completion_tokens"`
	// Cases is the number of results attributed to the value.
	Cases int `json:"cases"`
}

// window is one budget period's accumulation state.
type window struct {
	start          time.Time
	spendUSD       float64
	thresholdFired bool
	exceededFired  bool
}

// Tracker accumulates spend and token counts under a mutex so runner workers
// and the orchestrator can write concurrently.
type Tracker struct {
	mu         sync.Mutex
	budgets    []Budget
	windows    map[Period]*window
	totals     Totals
	dimensions []string
	drivers    map[string]map[string]*Driver
	now        func() time.Time
}

// Option is a functional option for NewTracker.
type Option func(*Tracker)

// WithNow injects the clock, for tests and replays.
func WithNow(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithDimensions overrides the tracked breakdown dimensions.
func WithDimensions(dimensions ...string) Option {
	return func(t *Tracker) {
		if len(dimensions) > 0 {
			t.dimensions = dimensions
		}
	}
}

// NewTracker builds a tracker enforcing the given budgets. Budgets may be
// empty; the tracker then only accumulates totals and breakdowns.
func NewTracker(budgets []Budget, opt ...Option) (*Tracker, error) {
	t := &Tracker{
		windows:    make(map[Period]*window),
		dimensions: defaultDimensions(),
		drivers:    make(map[string]map[string]*Driver),
		now:        time.Now,
	}
	seen := make(map[Period]bool, len(budgets))
	for _, b := range budgets {
		if b.Period.String() == "unknown" {
			return nil, fmt.Errorf("unknown budget period %d", b.Period)
		}
		if seen[b.Period] {
			return nil, fmt.Errorf("duplicate budget for period %s", b.Period)
		}
		seen[b.Period] = true
		if b.LimitUSD <= 0 {
			return nil, fmt.Errorf("budget limit for period %s must be positive", b.Period)
		}
		if b.AlertThresholdPercent < 0 || b.AlertThresholdPercent > 100 {
			return nil, fmt.Errorf("alert threshold for period %s must be within (0, 100]", b.Period)
		}
		if b.AlertThresholdPercent == 0 {
			b.AlertThresholdPercent = DefaultAlertThresholdPercent
		}
		t.budgets = append(t.budgets, b)
	}
	for _, o := range opt {
		o(t)
	}
	return t, nil
}

// Accumulate folds one result into the totals, breakdowns and budget windows,
// returning any budget events the accumulation triggered. datasetID and
// modelID attribute the spend; an empty modelID falls back to the result's
// metadata.
func (t *Tracker) Accumulate(res *evalrun.TestCaseResult, datasetID, modelID string) []Event {
	if res == nil {
		return nil
	}
	if modelID == "" {
		modelID = res.Metadata.ModelID
	}
	spend := res.Metadata.CostUSD
	prompt := res.Metadata.PromptTokens
	completion := res.Metadata.CompletionTokens

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now().UTC()

	t.totals.SpendUSD += spend
	t.totals.PromptTokens += prompt
	t.totals.CompletionTokens += completion
	t.totals.Cases++

	for _, dimension := range t.dimensions {
		value := ""
		switch dimension {
		case DimensionModel:
			value = modelID
		case DimensionDataset:
			value = datasetID
		case DimensionTimeBucket:
			value = now.Format("2006-01-02")
		}
		if value == "" {
			continue
		}
		t.addDriver(dimension, value, spend, prompt, completion)
	}

	var events []Event
	for i := range t.budgets {
		events = append(events, t.accumulateBudget(&t.budgets[i], now, spend)...)
	}
	return events
}

func (t *Tracker) addDriver(dimension, value string, spend float64, prompt, completion int) {
	byValue := t.drivers[dimension]
	if byValue == nil {
		byValue = make(map[string]*Driver)
		t.drivers[dimension] = byValue
	}
	d := byValue[value]
	if d == nil {
		d = &Driver{Dimension: dimension, Value: value}
		byValue[value] = d
	}
	d.SpendUSD += spend
	d.PromptTokens += prompt
	d.CompletionTokens += completion
	d.Cases++
}

// accumulateBudget rolls the budget's window forward if needed, adds the
// spend and fires each crossing at most once per window.
func (t *Tracker) accumulateBudget(b *Budget, now time.Time, spend float64) []Event {
	start := b.Period.truncate(now)
	w := t.windows[b.Period]
	if w == nil || !w.start.Equal(start) {
		w = &window{start: start}
		t.windows[b.Period] = w
	}
	w.spendUSD += spend

	var events []Event
	if !w.thresholdFired && w.spendUSD >= b.LimitUSD*b.AlertThresholdPercent/100 {
		w.thresholdFired = true
		events = append(events, Event{
			Type:             EventThresholdCrossed,
			Period:           b.Period,
			WindowStart:      w.start,
			SpendUSD:         w.spendUSD,
			LimitUSD:         b.LimitUSD,
			ThresholdPercent: b.AlertThresholdPercent,
		})
	}
	if !w.exceededFired && w.spendUSD >= b.LimitUSD {
		w.exceededFired = true
		events = append(events, Event{
			Type:             EventBudgetExceeded,
			Period:           b.Period,
			WindowStart:      w.start,
			SpendUSD:         w.spendUSD,
			LimitUSD:         b.LimitUSD,
			ThresholdPercent: 100,
		})
	}
	return events
}

// Totals returns the running grand total.
func (t *Tracker) Totals() Totals {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.totals
}

// TopDrivers returns the n highest-spend values of a dimension, ties broken
// by value name. n <= 0 returns all values.
func (t *Tracker) TopDrivers(dimension string, n int) ([]Driver, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracksDimension(dimension) {
		return nil, fmt.Errorf("unknown cost dimension %q", dimension)
	}
	drivers := t.sortedDrivers(dimension)
	if n > 0 && n < len(drivers) {
		drivers = drivers[:n]
	}
	return drivers, nil
}

func (t *Tracker) tracksDimension(dimension string) bool {
	for _, d := range t.dimensions {
		if d == dimension {
			return true
		}
	}
	return false
}

// sortedDrivers returns the dimension's drivers by spend descending. Callers
// must hold t.mu.
func (t *Tracker) sortedDrivers(dimension string) []Driver {
	byValue := t.drivers[dimension]
	drivers := make([]Driver, 0, len(byValue))
	for _, d := range byValue {
		drivers = append(drivers, *d)
	}
	sort.Slice(drivers, func(i, j int) bool {
		if drivers[i].SpendUSD != drivers[j].SpendUSD {
			return drivers[i].SpendUSD > drivers[j].SpendUSD
		}
		return drivers[i].Value < drivers[j].Value
	})
	return drivers
}
