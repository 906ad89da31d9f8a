//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package openai adapts OpenAI-compatible chat completion endpoints to the
// model.Provider contract.
package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"trpc.group/trpc-go/trpc-eval-go/model"
)

var _ model.Provider = (*Model)(nil)

// Model invokes an OpenAI-compatible chat completion endpoint.
type Model struct {
	client openai.Client
	name   string
}

type options struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	extraOpts  []openaiopt.RequestOption
}

// Option configures the model client.
type Option func(*options)

// WithAPIKey sets the API key. When empty the client falls back to the
// OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(o *options) {
		o.apiKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) {
		o.baseURL = url
	}
}

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithClientOptions appends raw openai-go request options.
func WithClientOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) {
		o.extraOpts = append(o.extraOpts, opts...)
	}
}

// New creates a chat completion provider for the named model.
func New(name string, opt ...Option) *Model {
	var o options
	for _, op := range opt {
		op(&o)
	}

	// Retry scheduling belongs to the caller, so the SDK's built-in
	// retries are disabled.
	clientOpts := []openaiopt.RequestOption{openaiopt.WithMaxRetries(0)}
	if o.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(o.httpClient))
	}
	clientOpts = append(clientOpts, o.extraOpts...)

	return &Model{
		client: openai.NewClient(clientOpts...),
		name:   name,
	}
}

// Name implements model.Provider.
func (m *Model) Name() string {
	return m.name
}

// Complete implements model.Provider. Failures are returned as *model.Error
// so callers can decide whether to retry.
func (m *Model) Complete(ctx context.Context, req *model.Request) (*model.Response, error) {
	if req == nil {
		return nil, model.NewError(model.KindInvalidRequest, "nil request", nil)
	}
	if len(req.Messages) == 0 {
		return nil, model.NewError(model.KindInvalidRequest, "empty messages", nil)
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(m.name),
		Messages: convertMessages(req.Messages),
	}
	if req.MaxTokens != nil {
		params.MaxCompletionTokens = openai.Int(int64(*req.MaxTokens))
	}
	if req.Temperature != nil {
		params.Temperature = openai.Float(*req.Temperature)
	}

	completion, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, ClassifyError(err)
	}
	if len(completion.Choices) == 0 {
		return nil, model.NewError(model.KindUnavailable, "completion returned no choices", nil)
	}

	choice := completion.Choices[0]
	return &model.Response{
		Text:         choice.Message.Content,
		FinishReason: choice.FinishReason,
		Usage: model.Usage{
			PromptTokens:     int(completion.Usage.PromptTokens),
			CompletionTokens: int(completion.Usage.CompletionTokens),
			TotalTokens:      int(completion.Usage.TotalTokens),
		},
	}, nil
}

func convertMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	result := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			result = append(result, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			result = append(result, openai.AssistantMessage(msg.Content))
		default:
			result = append(result, openai.UserMessage(msg.Content))
		}
	}
	return result
}

// ClassifyError maps transport and API failures onto the model error
// taxonomy. HTTP status drives the decision for API errors.
func ClassifyError(err error) *model.Error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		kind := kindForStatus(apiErr.StatusCode)
		e := model.NewError(kind, apiErr.Message, err)
		if kind == model.KindRateLimited && apiErr.Response != nil {
			e.RetryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return e
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewError(model.KindTimeout, "request deadline exceeded", err)
	}
	if errors.Is(err, context.Canceled) {
		return model.NewError(model.KindUnknown, "request canceled", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return model.NewError(model.KindTimeout, "network timeout", err)
		}
		return model.NewError(model.KindUnavailable, "network failure", err)
	}
	return model.NewError(model.KindUnknown, err.Error(), err)
}

func kindForStatus(status int) model.ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return model.KindRateLimited
	case status == http.StatusRequestTimeout:
		return model.KindTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return model.KindAuth
	case status >= 500:
		return model.KindUnavailable
	case status >= 400:
		return model.KindInvalidRequest
	default:
		return model.KindUnknown
	}
}

// parseRetryAfter reads a Retry-After header value, either delta seconds or
// an HTTP date.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}
