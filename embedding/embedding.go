//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package embedding defines the text embedding contract used by similarity
// scoring.
package embedding

import "context"

// Embedder converts text to a dense vector. Implementations must be safe for
// concurrent use.
type Embedder interface {
	// GetEmbedding generates an embedding vector for the given text.
	GetEmbedding(ctx context.Context, text string) ([]float64, error)
}
