//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package openai adapts the OpenAI embeddings API to the embedding.Embedder
// contract.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"

	"trpc.group/trpc-go/trpc-eval-go/embedding"
	modelopenai "trpc.group/trpc-go/trpc-eval-go/model/openai"
)

const (
	// DefaultModel is the default embedding model.
	DefaultModel = "text-embedding-3-small"
	// DefaultDimensions is the default embedding dimension for text-embedding-3-small.
	DefaultDimensions = 1536

	textEmbedding3Prefix = "text-embedding-3"
)

var _ embedding.Embedder = (*Embedder)(nil)

// Embedder generates embeddings through an OpenAI-compatible endpoint.
type Embedder struct {
	client     openai.Client
	model      string
	dimensions int
}

// Option configures the embedder.
type Option func(*config)

type config struct {
	model      string
	dimensions int
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// WithModel sets the embedding model name.
func WithModel(model string) Option {
	return func(c *config) {
		if model != "" {
			c.model = model
		}
	}
}

// WithDimensions sets the number of dimensions for the embedding. Only
// text-embedding-3 series models honor it.
func WithDimensions(dimensions int) Option {
	return func(c *config) {
		if dimensions > 0 {
			c.dimensions = dimensions
		}
	}
}

// WithAPIKey sets the API key. When empty the client falls back to the
// OPENAI_API_KEY environment variable.
func WithAPIKey(key string) Option {
	return func(c *config) {
		c.apiKey = key
	}
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the transport, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *config) {
		c.httpClient = client
	}
}

// New creates an OpenAI embedder.
func New(opts ...Option) *Embedder {
	c := config{
		model:      DefaultModel,
		dimensions: DefaultDimensions,
	}
	for _, opt := range opts {
		opt(&c)
	}

	// Retry scheduling belongs to the caller, so the SDK's built-in
	// retries are disabled.
	clientOpts := []openaiopt.RequestOption{openaiopt.WithMaxRetries(0)}
	if c.apiKey != "" {
		clientOpts = append(clientOpts, openaiopt.WithAPIKey(c.apiKey))
	}
	if c.baseURL != "" {
		clientOpts = append(clientOpts, openaiopt.WithBaseURL(c.baseURL))
	}
	if c.httpClient != nil {
		clientOpts = append(clientOpts, openaiopt.WithHTTPClient(c.httpClient))
	}

	return &Embedder{
		client:     openai.NewClient(clientOpts...),
		model:      c.model,
		dimensions: c.dimensions,
	}
}

// GetEmbedding implements embedding.Embedder. Failures are classified onto
// the model error taxonomy so callers can decide whether to retry.
func (e *Embedder) GetEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("embedding: text cannot be empty")
	}

	request := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(e.model),
	}
	if isTextEmbedding3Model(e.model) {
		request.Dimensions = openai.Int(int64(e.dimensions))
	}

	response, err := e.client.Embeddings.New(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", modelopenai.ClassifyError(err))
	}
	if len(response.Data) == 0 {
		return nil, fmt.Errorf("embedding: empty response for model %s", e.model)
	}
	return response.Data[0].Embedding, nil
}

// GetDimensions returns the configured vector width.
func (e *Embedder) GetDimensions() int {
	return e.dimensions
}

// Model returns the embedding model name.
func (e *Embedder) Model() string {
	return e.model
}

func isTextEmbedding3Model(model string) bool {
	return strings.HasPrefix(model, textEmbedding3Prefix)
}
