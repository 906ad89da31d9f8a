//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package telemetry holds the OpenTelemetry handles shared by the evaluation
// engine. Every handle defaults to a noop implementation; InitMeterProvider
// and the trace/metric subpackages swap in real providers when telemetry is
// enabled.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"trpc.group/trpc-go/trpc-eval-go/evalrun"
)

// grpcDial is a package-level variable to allow test injection of a custom
// dialer. In production it points to grpc.Dial.
var grpcDial = grpc.Dial

// telemetry service constants.
const (
	ServiceName      = "telemetry"
	ServiceVersion   = "v0.1.0"
	ServiceNamespace = "trpc-go-eval"
	InstrumentName   = "trpc.eval.go"

	OperationEvaluateRun  = "evaluate_run"
	OperationEvaluateCase = "evaluate_case"
)

const (
	// ProtocolGRPC uses gRPC protocol for OTLP exporters.
	ProtocolGRPC string = "grpc"
	// ProtocolHTTP uses HTTP protocol for OTLP exporters.
	ProtocolHTTP string = "http"
)

// Telemetry attribute keys.
var (
	KeyRunID          = "trpc_eval_go.run.id"
	KeyDatasetID      = "trpc_eval_go.dataset.id"
	KeyDatasetVersion = "trpc_eval_go.dataset.version"
	KeyCaseID         = "trpc_eval_go.case.id"
	KeyCaseVerdict    = "trpc_eval_go.case.verdict"

	KeyGenAIOperationName     = "gen_ai.operation.name"
	KeyGenAIRequestModel      = "gen_ai.request.model"
	KeyGenAIUsageInputTokens  = "gen_ai.usage.input_tokens"  // #nosec G101 - this is a metric key name, not a credential.
	KeyGenAIUsageOutputTokens = "gen_ai.usage.output_tokens" // #nosec G101 - this is a metric key name, not a credential.
	KeyGenAITokenType         = "gen_ai.token.type"          // #nosec G101 - this is a metric key name, not a credential.

	// https://github.com/open-telemetry/semantic-conventions/blob/main/docs/general/recording-errors.md#recording-errors-on-spans
	KeyErrorType          = "error.type"
	ValueDefaultErrorType = "_OTHER"
)

// Metric and meter names.
const (
	// TokenTypeInput labels prompt tokens on the token usage histogram.
	TokenTypeInput = "input"
	// TokenTypeOutput labels completion tokens on the token usage histogram.
	TokenTypeOutput = "output"

	// MetricEvalCaseCnt counts evaluated test cases.
	MetricEvalCaseCnt = "trpc_eval_go.runner.case_cnt"
	// MetricEvalCaseRetryCnt counts model call retries.
	MetricEvalCaseRetryCnt = "trpc_eval_go.runner.retry_cnt"
	// MetricGenAIClientTokenUsage represents the token usage of model calls.
	MetricGenAIClientTokenUsage = "gen_ai.client.token.usage" // #nosec G101 - this is a metric key name, not a credential.
	// MetricGenAIClientOperationDuration represents the duration of model calls.
	MetricGenAIClientOperationDuration = "gen_ai.client.operation.duration"
	// MetricEvalRunDuration represents the wall time of whole runs.
	MetricEvalRunDuration = "trpc_eval_go.run.duration"
	// MetricEvalRunCost represents the accumulated model spend of runs.
	MetricEvalRunCost = "trpc_eval_go.run.cost_usd"

	// MeterNameRunner is the meter name for test case execution.
	MeterNameRunner = "trpc_eval_go.internal.runner"
	// MeterNameEvaluation is the meter name for run-level aggregates.
	MeterNameEvaluation = "trpc_eval_go.internal.evaluation"
)

// Meter handles and instruments, noop until InitMeterProvider runs.
var (
	MeterProvider metric.MeterProvider = noop.NewMeterProvider()

	RunnerMeter                              metric.Meter            = MeterProvider.Meter(MeterNameRunner)
	RunnerMetricEvalCaseCnt                  metric.Int64Counter     = noop.Int64Counter{}
	RunnerMetricEvalCaseRetryCnt             metric.Int64Counter     = noop.Int64Counter{}
	RunnerMetricGenAIClientTokenUsage        metric.Int64Histogram   = noop.Int64Histogram{}
	RunnerMetricGenAIClientOperationDuration metric.Float64Histogram = noop.Float64Histogram{}

	EvaluationMeter                 metric.Meter            = MeterProvider.Meter(MeterNameEvaluation)
	EvaluationMetricEvalRunDuration metric.Float64Histogram = noop.Float64Histogram{}
	EvaluationMetricEvalRunCost     metric.Float64Counter   = noop.Float64Counter{}
)

// NewRunSpanName creates a run span name, e.g. "evaluate_run qa-v1".
func NewRunSpanName(datasetID string) string {
	if datasetID == "" {
		return OperationEvaluateRun
	}
	return fmt.Sprintf("%s %s", OperationEvaluateRun, datasetID)
}

// NewCaseSpanName creates a test case span name, e.g. "evaluate_case tc-01".
func NewCaseSpanName(caseID string) string {
	if caseID == "" {
		return OperationEvaluateCase
	}
	return fmt.Sprintf("%s %s", OperationEvaluateCase, caseID)
}

// Case verdict values.
const (
	VerdictPass  = "pass"
	VerdictFail  = "fail"
	VerdictError = "error"
)

// CaseVerdict classifies a test case result for spans and counters.
func CaseVerdict(result *evalrun.TestCaseResult) string {
	switch {
	case result == nil || result.Errored():
		return VerdictError
	case result.Passed:
		return VerdictPass
	default:
		return VerdictFail
	}
}

// IncCaseCnt counts one evaluated test case.
func IncCaseCnt(ctx context.Context, datasetID string, result *evalrun.TestCaseResult) {
	var modelID string
	if result != nil {
		modelID = result.Metadata.ModelID
	}
	RunnerMetricEvalCaseCnt.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String(KeyGenAIOperationName, OperationEvaluateCase),
			attribute.String(KeyDatasetID, datasetID),
			attribute.String(KeyGenAIRequestModel, modelID),
			attribute.String(KeyCaseVerdict, CaseVerdict(result)),
		))
}

// AddCaseRetryCnt counts the model call retries one test case burned.
func AddCaseRetryCnt(ctx context.Context, datasetID, modelID string, retries int64) {
	if retries <= 0 {
		return
	}
	RunnerMetricEvalCaseRetryCnt.Add(ctx, retries,
		metric.WithAttributes(
			attribute.String(KeyGenAIOperationName, OperationEvaluateCase),
			attribute.String(KeyDatasetID, datasetID),
			attribute.String(KeyGenAIRequestModel, modelID),
		))
}

// RecordCaseTokenUsage records prompt and completion token usage of one
// model call.
func RecordCaseTokenUsage(ctx context.Context, modelID string, inputTokens, outputTokens int64) {
	recordTokenUsage(ctx, modelID, inputTokens, TokenTypeInput)
	recordTokenUsage(ctx, modelID, outputTokens, TokenTypeOutput)
}

func recordTokenUsage(ctx context.Context, modelID string, usage int64, tokenType string) {
	RunnerMetricGenAIClientTokenUsage.Record(ctx, usage,
		metric.WithAttributes(
			attribute.String(KeyGenAIOperationName, OperationEvaluateCase),
			attribute.String(KeyGenAIRequestModel, modelID),
			attribute.String(KeyGenAITokenType, tokenType),
		))
}

// RecordCaseDuration records the latency of one model call.
func RecordCaseDuration(ctx context.Context, modelID string, duration time.Duration) {
	RunnerMetricGenAIClientOperationDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String(KeyGenAIOperationName, OperationEvaluateCase),
			attribute.String(KeyGenAIRequestModel, modelID),
		))
}

// RecordRunDuration records the wall time of one evaluation run.
func RecordRunDuration(ctx context.Context, datasetID, modelID string, duration time.Duration) {
	EvaluationMetricEvalRunDuration.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String(KeyGenAIOperationName, OperationEvaluateRun),
			attribute.String(KeyDatasetID, datasetID),
			attribute.String(KeyGenAIRequestModel, modelID),
		))
}

// AddRunCost accumulates the model spend of one evaluation run.
func AddRunCost(ctx context.Context, datasetID, modelID string, usd float64) {
	EvaluationMetricEvalRunCost.Add(ctx, usd,
		metric.WithAttributes(
			attribute.String(KeyGenAIOperationName, OperationEvaluateRun),
			attribute.String(KeyDatasetID, datasetID),
			attribute.String(KeyGenAIRequestModel, modelID),
		))
}

// TraceRun stamps the identifying attributes of an evaluation run onto its
// span.
func TraceRun(span trace.Span, datasetID, datasetVersion, modelID string) {
	span.SetAttributes(
		attribute.String(KeyGenAIOperationName, OperationEvaluateRun),
		attribute.String(KeyDatasetID, datasetID),
		attribute.String(KeyDatasetVersion, datasetVersion),
		attribute.String(KeyGenAIRequestModel, modelID),
	)
}

// TraceCaseResult stamps the outcome of one evaluated test case onto its
// span. Errored cases also mark the span status so trace backends surface
// them without attribute filters.
func TraceCaseResult(span trace.Span, datasetID string, result *evalrun.TestCaseResult) {
	if result == nil {
		return
	}
	span.SetAttributes(
		attribute.String(KeyGenAIOperationName, OperationEvaluateCase),
		attribute.String(KeyDatasetID, datasetID),
		attribute.String(KeyCaseID, result.TestCaseID),
		attribute.String(KeyGenAIRequestModel, result.Metadata.ModelID),
		attribute.String(KeyCaseVerdict, CaseVerdict(result)),
		attribute.Int64(KeyGenAIUsageInputTokens, int64(result.Metadata.PromptTokens)),
		attribute.Int64(KeyGenAIUsageOutputTokens, int64(result.Metadata.CompletionTokens)),
	)
	if result.Errored() {
		span.SetAttributes(attribute.String(KeyErrorType, ValueDefaultErrorType))
		span.SetStatus(codes.Error, result.Metadata.Error)
	}
}

// NewGRPCConn creates the gRPC connection OTLP exporters use to reach the
// OpenTelemetry Collector.
func NewGRPCConn(endpoint string) (*grpc.ClientConn, error) {
	conn, err := grpcDial(endpoint,
		// Note the use of insecure transport here. TLS is recommended in production.
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection to collector: %w", err)
	}

	return conn, err
}
