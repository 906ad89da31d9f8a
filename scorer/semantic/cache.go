//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package semantic

import (
	"crypto/sha256"
	"sync"
)

// vectorCache is a read-through embedding cache. Keys hash the model
// identity together with the text so identical texts embedded by different
// models stay distinct.
type vectorCache struct {
	mu     sync.RWMutex
	m      map[[sha256.Size]byte][]float64
	hits   int64
	misses int64
}

func newVectorCache() *vectorCache {
	return &vectorCache{m: make(map[[sha256.Size]byte][]float64)}
}

func cacheKey(model, text string) [sha256.Size]byte {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(text))
	var key [sha256.Size]byte
	copy(key[:], h.Sum(nil))
	return key
}

func (c *vectorCache) get(model, text string) ([]float64, bool) {
	key := cacheKey(model, text)
	c.mu.Lock()
	defer c.mu.Unlock()
	vec, ok := c.m[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return vec, ok
}

func (c *vectorCache) put(model, text string, vec []float64) {
	key := cacheKey(model, text)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = vec
}

func (c *vectorCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *vectorCache) stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
