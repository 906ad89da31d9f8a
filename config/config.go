//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package config resolves the engine's file and environment configuration.
// An explicit path wins over ./trpc-eval.yaml, which wins over the built-in
// defaults; credentials are never stored in the file, only the names of the
// environment variables that hold them.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
	"trpc.group/trpc-go/trpc-eval-go/cost"
	"trpc.group/trpc-go/trpc-eval-go/runner"
)

// DefaultFileName is the config file looked up in the working directory when
// no explicit path is given.
const DefaultFileName = "trpc-eval.yaml"

// DefaultAPIKeyEnv names the environment variable the model credential is
// read from when the file does not name one.
const DefaultAPIKeyEnv = "OPENAI_API_KEY"

// Scorer type names accepted in configuration. They double as the default
// registry names of the built-in scorers.
const (
	ScorerExactMatch = "exact_match"
	ScorerF1         = "f1"
	ScorerSemantic   = "semantic_similarity"
	ScorerJudge      = "llm_judge"
	ScorerRecallAtK  = "recall_at_k"
)

// Error is a configuration fault. It is fatal: commands report it and exit
// before any execution starts.
type Error struct {
	msg string
	err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error { return e.err }

func newErrorf(format string, args ...any) *Error {
	return &Error{msg: fmt.Sprintf(format, args...)}
}

// Config is the full engine configuration document.
type Config struct {
	Model     Model     `yaml:"model"`
	Runner    Runner    `yaml:"runner"`
	Scorers   []Scorer  `yaml:"scorers"`
	Baseline  Baseline  `yaml:"baseline"`
	Budgets   []Budget  `yaml:"budgets,omitempty"`
	Alerts    Alerts    `yaml:"alerts"`
	Storage   Storage   `yaml:"storage"`
	Log       Log       `yaml:"log"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Model identifies the model under test and how to reach its provider.
type Model struct {
	// Provider is the provider family, e.g. "openai". Any endpoint speaking
	// the OpenAI wire format works through BaseURL.
	Provider string `yaml:"provider"`
	// Name is the model identifier sent to the provider.
	Name string `yaml:"name"`
	// APIKeyEnv names the environment variable holding the credential.
	APIKeyEnv string `yaml:"api_key_env"`
	// BaseURL overrides the provider endpoint.
	BaseURL string `yaml:"base_url,omitempty"`
	// Temperature is the sampling temperature, provider default when nil.
	Temperature *float64 `yaml:"temperature,omitempty"`
	// MaxTokens caps the completion length, provider default when nil.
	MaxTokens *int `yaml:"max_tokens,omitempty"`
}

// APIKey resolves the provider credential from the environment. A missing
// credential is a configuration error so runs fail before any execution.
func (m Model) APIKey() (string, error) {
	env := m.APIKeyEnv
	if env == "" {
		env = DefaultAPIKeyEnv
	}
	key := os.Getenv(env)
	if key == "" {
		return "", newErrorf("model api key environment variable %s is not set", env)
	}
	return key, nil
}

// Runner carries the execution settings.
type Runner struct {
	// Concurrency is the worker pool size.
	Concurrency int `yaml:"concurrency"`
	// MaxRetries caps retries of retryable model calls.
	MaxRetries int `yaml:"max_retries"`
	// TimeoutSeconds bounds one test case end to end.
	TimeoutSeconds int `yaml:"timeout_seconds"`
	// JudgeTimeoutSeconds stretches the case budget for judge-backed runs,
	// zero keeps the judge scorer's own default.
	JudgeTimeoutSeconds int `yaml:"judge_timeout_seconds,omitempty"`
	// RateLimitPerSecond throttles model calls, zero disables the limiter.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second,omitempty"`
	// PassPolicy combines scorer verdicts: "all" (default) or "any".
	PassPolicy string `yaml:"pass_policy"`
}

// Scorer is one scorer entry. Type selects the implementation; the remaining
// fields apply to the types that use them and are ignored otherwise.
type Scorer struct {
	// Name is the registry name, defaulting to Type.
	Name string `yaml:"name,omitempty"`
	// Type selects the scorer implementation.
	Type string `yaml:"type"`
	// Threshold is the pass threshold for semantic and judge scorers.
	Threshold *float64 `yaml:"threshold,omitempty"`
	// MinScore is the pass threshold for the f1 scorer.
	MinScore *float64 `yaml:"min_score,omitempty"`
	// K is the retrieval cutoff for recall_at_k.
	K int `yaml:"k,omitempty"`
	// MinRecall is the pass threshold for recall_at_k.
	MinRecall *float64 `yaml:"min_recall,omitempty"`
	// Preset names a recall_at_k preset and overrides K/MinRecall.
	Preset string `yaml:"preset,omitempty"`
	// IgnoreKeyOrder makes exact_match sequence comparison order-insensitive.
	IgnoreKeyOrder bool `yaml:"ignore_key_order,omitempty"`
	// IgnorePaths excludes dotted paths from exact_match comparison.
	IgnorePaths []string `yaml:"ignore_paths,omitempty"`
	// Rubric replaces the judge scorer's default rubric.
	Rubric []Criterion `yaml:"rubric,omitempty"`
	// EmbeddingModel overrides the semantic scorer's embedding model.
	EmbeddingModel string `yaml:"embedding_model,omitempty"`
}

// Criterion is one judge rubric dimension.
type Criterion struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Weight      float64 `yaml:"weight"`
}

// Tier is a {major, critical} severity cutoff pair.
type Tier struct {
	Major    float64 `yaml:"major"`
	Critical float64 `yaml:"critical"`
}

// Baseline carries the regression severity thresholds. Quality metrics grade
// on absolute drop in points, latency and cost on relative increase.
type Baseline struct {
	AccuracyDropPoints   Tier `yaml:"accuracy_drop_points"`
	PassRateDropPoints   Tier `yaml:"pass_rate_drop_points"`
	LatencyIncreaseRatio Tier `yaml:"latency_increase_ratio"`
	CostIncreaseRatio    Tier `yaml:"cost_increase_ratio"`
}

// Thresholds converts the section to comparator thresholds.
func (b Baseline) Thresholds() baseline.Thresholds {
	return baseline.Thresholds{
		AccuracyDropPoints:   baseline.Tier{Major: b.AccuracyDropPoints.Major, Critical: b.AccuracyDropPoints.Critical},
		PassRateDropPoints:   baseline.Tier{Major: b.PassRateDropPoints.Major, Critical: b.PassRateDropPoints.Critical},
		LatencyIncreaseRatio: baseline.Tier{Major: b.LatencyIncreaseRatio.Major, Critical: b.LatencyIncreaseRatio.Critical},
		CostIncreaseRatio:    baseline.Tier{Major: b.CostIncreaseRatio.Major, Critical: b.CostIncreaseRatio.Critical},
	}
}

// Budget is one spend cap.
type Budget struct {
	// Period is the window recurrence: hourly, daily, weekly or monthly.
	Period string `yaml:"period"`
	// LimitUSD is the spend cap for the window.
	LimitUSD float64 `yaml:"limit_usd"`
	// AlertThresholdPercent fires a warning at this share of the limit,
	// default 80.
	AlertThresholdPercent float64 `yaml:"alert_threshold_percent,omitempty"`
}

// Alerts configures notification delivery.
type Alerts struct {
	// WebhookURL enables the webhook channel when set.
	WebhookURL string `yaml:"webhook_url,omitempty"`
	// Email enables the email channel when present.
	Email *Email `yaml:"email,omitempty"`
	// MinSeverity suppresses events below it: minor, major or critical.
	MinSeverity string `yaml:"min_severity"`
	// HistorySize bounds the in-memory alert history, zero keeps the
	// dispatcher default.
	HistorySize int `yaml:"history_size,omitempty"`
	// DashboardURL is the base URL report links in alert events point at.
	DashboardURL string `yaml:"dashboard_url,omitempty"`
}

// Email is the SMTP channel configuration. The password comes from the
// environment, never from the file.
type Email struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port,omitempty"`
	From        string   `yaml:"from"`
	To          []string `yaml:"to"`
	Username    string   `yaml:"username,omitempty"`
	PasswordEnv string   `yaml:"password_env,omitempty"`
}

// Password resolves the SMTP credential from the environment. An empty
// PasswordEnv means the server needs no authentication.
func (e Email) Password() (string, error) {
	if e.PasswordEnv == "" {
		return "", nil
	}
	password := os.Getenv(e.PasswordEnv)
	if password == "" {
		return "", newErrorf("email password environment variable %s is not set", e.PasswordEnv)
	}
	return password, nil
}

// Storage selects the persistence backends.
type Storage struct {
	// Dir stores datasets and runs as files under this directory. Empty
	// keeps everything in memory.
	Dir string `yaml:"dir,omitempty"`
	// MySQLDSN stores baselines in MySQL. Empty keeps them in memory.
	MySQLDSN string `yaml:"mysql_dsn,omitempty"`
}

// Log configures logging.
type Log struct {
	// Level is one of debug, info, warn, error, fatal.
	Level string `yaml:"level"`
}

// Telemetry configures the OTLP exporters.
type Telemetry struct {
	// Enabled turns span and metric export on.
	Enabled bool `yaml:"enabled"`
	// Endpoint is the collector address.
	Endpoint string `yaml:"endpoint,omitempty"`
	// Protocol is "grpc" or "http".
	Protocol string `yaml:"protocol,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Model: Model{
			Provider:  "openai",
			Name:      "gpt-4o-mini",
			APIKeyEnv: DefaultAPIKeyEnv,
		},
		Runner: Runner{
			Concurrency:         runner.DefaultConcurrency,
			MaxRetries:          runner.DefaultMaxRetries,
			TimeoutSeconds:      int(runner.DefaultCaseTimeout.Seconds()),
			JudgeTimeoutSeconds: 120,
			PassPolicy:          "all",
		},
		Scorers: []Scorer{
			{Name: ScorerExactMatch, Type: ScorerExactMatch},
		},
		Baseline: Baseline{
			AccuracyDropPoints:   Tier{Major: 5, Critical: 10},
			PassRateDropPoints:   Tier{Major: 5, Critical: 10},
			LatencyIncreaseRatio: Tier{Major: 0.25, Critical: 0.50},
			CostIncreaseRatio:    Tier{Major: 0.25, Critical: 0.50},
		},
		Alerts: Alerts{
			MinSeverity: "minor",
		},
		Log: Log{
			Level: "info",
		},
		Telemetry: Telemetry{
			Endpoint: "localhost:4317",
			Protocol: "grpc",
		},
	}
}

// Load resolves the configuration. An explicit path must exist; the default
// file is optional and its absence falls back to the built-in defaults. The
// loaded document is validated before it is returned.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if uerr := yaml.Unmarshal(data, cfg); uerr != nil {
			return nil, &Error{msg: fmt.Sprintf("parse config %s", path), err: uerr}
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// No config file, built-in defaults apply.
	default:
		return nil, &Error{msg: fmt.Sprintf("read config %s", path), err: err}
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults refills fields an explicit document zeroed out, so "unset"
// and "absent" resolve the same way.
func (c *Config) applyDefaults() {
	def := Default()
	if c.Model.Provider == "" {
		c.Model.Provider = def.Model.Provider
	}
	if c.Model.Name == "" {
		c.Model.Name = def.Model.Name
	}
	if c.Model.APIKeyEnv == "" {
		c.Model.APIKeyEnv = def.Model.APIKeyEnv
	}
	if c.Runner.Concurrency == 0 {
		c.Runner.Concurrency = def.Runner.Concurrency
	}
	if c.Runner.TimeoutSeconds == 0 {
		c.Runner.TimeoutSeconds = def.Runner.TimeoutSeconds
	}
	if c.Runner.PassPolicy == "" {
		c.Runner.PassPolicy = def.Runner.PassPolicy
	}
	for i := range c.Scorers {
		if c.Scorers[i].Name == "" {
			c.Scorers[i].Name = c.Scorers[i].Type
		}
	}
	if c.Alerts.MinSeverity == "" {
		c.Alerts.MinSeverity = def.Alerts.MinSeverity
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Telemetry.Endpoint == "" {
		c.Telemetry.Endpoint = def.Telemetry.Endpoint
	}
	if c.Telemetry.Protocol == "" {
		c.Telemetry.Protocol = def.Telemetry.Protocol
	}
}

var scorerTypes = map[string]bool{
	ScorerExactMatch: true,
	ScorerF1:         true,
	ScorerSemantic:   true,
	ScorerJudge:      true,
	ScorerRecallAtK:  true,
}

var logLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
	"fatal": true,
}

// Validate checks the document and reports every violation found.
func (c *Config) Validate() error {
	var merr *multierror.Error

	if c.Runner.Concurrency < 0 {
		merr = multierror.Append(merr, fmt.Errorf("runner.concurrency must not be negative"))
	}
	if c.Runner.MaxRetries < 0 {
		merr = multierror.Append(merr, fmt.Errorf("runner.max_retries must not be negative"))
	}
	if c.Runner.TimeoutSeconds < 0 {
		merr = multierror.Append(merr, fmt.Errorf("runner.timeout_seconds must not be negative"))
	}
	if c.Runner.JudgeTimeoutSeconds < 0 {
		merr = multierror.Append(merr, fmt.Errorf("runner.judge_timeout_seconds must not be negative"))
	}
	if c.Runner.RateLimitPerSecond < 0 {
		merr = multierror.Append(merr, fmt.Errorf("runner.rate_limit_per_second must not be negative"))
	}
	if _, err := runner.ParsePassPolicy(c.Runner.PassPolicy); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("runner.pass_policy: %w", err))
	}

	if len(c.Scorers) == 0 {
		merr = multierror.Append(merr, fmt.Errorf("no scorers configured"))
	}
	names := make(map[string]bool, len(c.Scorers))
	for i, sc := range c.Scorers {
		if sc.Type == "" {
			merr = multierror.Append(merr, fmt.Errorf("scorers[%d]: type is empty", i))
		} else if !scorerTypes[sc.Type] {
			merr = multierror.Append(merr, fmt.Errorf("scorers[%d]: unknown type %q", i, sc.Type))
		}
		if names[sc.Name] {
			merr = multierror.Append(merr, fmt.Errorf("duplicate scorer name %q", sc.Name))
		}
		names[sc.Name] = true
		for _, field := range []struct {
			name  string
			value *float64
		}{
			{"threshold", sc.Threshold},
			{"min_score", sc.MinScore},
			{"min_recall", sc.MinRecall},
		} {
			if field.value != nil && (*field.value < 0 || *field.value > 1) {
				merr = multierror.Append(merr,
					fmt.Errorf("scorers[%d]: %s must be within [0, 1]", i, field.name))
			}
		}
		if sc.K < 0 {
			merr = multierror.Append(merr, fmt.Errorf("scorers[%d]: k must not be negative", i))
		}
		for _, criterion := range sc.Rubric {
			if criterion.Name == "" {
				merr = multierror.Append(merr, fmt.Errorf("scorers[%d]: rubric criterion name is empty", i))
			}
			if criterion.Weight <= 0 {
				merr = multierror.Append(merr,
					fmt.Errorf("scorers[%d]: rubric criterion %q weight must be positive", i, criterion.Name))
			}
		}
	}

	for i, b := range c.Budgets {
		if _, err := cost.ParsePeriod(b.Period); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("budgets[%d]: %w", i, err))
		}
		if b.LimitUSD <= 0 {
			merr = multierror.Append(merr, fmt.Errorf("budgets[%d]: limit_usd must be positive", i))
		}
		if b.AlertThresholdPercent < 0 || b.AlertThresholdPercent > 100 {
			merr = multierror.Append(merr,
				fmt.Errorf("budgets[%d]: alert_threshold_percent must be within (0, 100]", i))
		}
	}

	if _, err := baseline.ParseSeverity(c.Alerts.MinSeverity); err != nil {
		merr = multierror.Append(merr, fmt.Errorf("alerts.min_severity: %w", err))
	}
	if c.Alerts.HistorySize < 0 {
		merr = multierror.Append(merr, fmt.Errorf("alerts.history_size must not be negative"))
	}
	if email := c.Alerts.Email; email != nil {
		if email.Host == "" {
			merr = multierror.Append(merr, fmt.Errorf("alerts.email.host is empty"))
		}
		if email.From == "" {
			merr = multierror.Append(merr, fmt.Errorf("alerts.email.from is empty"))
		}
		if len(email.To) == 0 {
			merr = multierror.Append(merr, fmt.Errorf("alerts.email.to is empty"))
		}
		if email.Port < 0 {
			merr = multierror.Append(merr, fmt.Errorf("alerts.email.port must not be negative"))
		}
	}

	if !logLevels[c.Log.Level] {
		merr = multierror.Append(merr, fmt.Errorf("unknown log level %q", c.Log.Level))
	}
	if c.Telemetry.Protocol != "grpc" && c.Telemetry.Protocol != "http" {
		merr = multierror.Append(merr, fmt.Errorf("telemetry.protocol must be grpc or http"))
	}
	if c.Telemetry.Enabled && c.Telemetry.Endpoint == "" {
		merr = multierror.Append(merr, fmt.Errorf("telemetry.endpoint is empty"))
	}

	if merr == nil {
		return nil
	}
	return &Error{msg: "invalid configuration", err: merr}
}
