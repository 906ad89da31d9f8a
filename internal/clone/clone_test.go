//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package clone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	Value   string
	Payload map[string]any
}

type nonSerializable struct {
	Bad chan int
}

func TestCloneSuccess(t *testing.T) {
	src := &sample{Value: "ok", Payload: map[string]any{"k": "v"}}
	dst, err := Clone(src)
	assert.NoError(t, err)
	assert.NotSame(t, src, dst)
	assert.Equal(t, src, dst)
}

func TestCloneIsDeep(t *testing.T) {
	src := &sample{Payload: map[string]any{"k": "v"}}
	dst, err := Clone(src)
	assert.NoError(t, err)
	dst.Payload["k"] = "changed"
	assert.Equal(t, "v", src.Payload["k"])
}

func TestCloneNilInput(t *testing.T) {
	dst, err := Clone[sample](nil)
	assert.Error(t, err)
	assert.Nil(t, dst)
}

func TestCloneMarshalError(t *testing.T) {
	src := &nonSerializable{Bad: make(chan int)}
	dst, err := Clone(src)
	assert.Error(t, err)
	assert.Nil(t, dst)
}
