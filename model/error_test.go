//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package model

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestError_Retryable verifies the kind taxonomy: throttling, timeouts and
// provider outages retry, everything else fails fast.
func TestError_Retryable(t *testing.T) {
	tests := []struct {
		kind      ErrorKind
		retryable bool
	}{
		{KindRateLimited, true},
		{KindTimeout, true},
		{KindUnavailable, true},
		{KindInvalidRequest, false},
		{KindAuth, false},
		{KindUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			e := NewError(tt.kind, "boom", nil)
			assert.Equal(t, tt.retryable, e.Retryable())
			assert.Equal(t, tt.retryable, Retryable(e))
		})
	}
}

// TestRetryable_UnclassifiedErrors verifies classification of errors that
// never passed through a provider adapter.
func TestRetryable_UnclassifiedErrors(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(errors.New("opaque")))
	assert.False(t, Retryable(context.Canceled))
	assert.True(t, Retryable(context.DeadlineExceeded))
}

// TestRetryable_WrappedError verifies that classification survives wrapping.
func TestRetryable_WrappedError(t *testing.T) {
	inner := NewError(KindRateLimited, "slow down", nil)
	wrapped := fmt.Errorf("call model: %w", inner)
	assert.True(t, Retryable(wrapped))
	assert.Equal(t, time.Duration(0), RetryAfterHint(wrapped))

	inner.RetryAfter = 7 * time.Second
	assert.Equal(t, 7*time.Second, RetryAfterHint(wrapped))
}

// TestError_Message verifies message rendering and unwrapping.
func TestError_Message(t *testing.T) {
	cause := errors.New("connection reset")
	e := NewError(KindUnavailable, "", cause)
	assert.Contains(t, e.Error(), "unavailable")
	assert.Contains(t, e.Error(), "connection reset")
	require.ErrorIs(t, e, cause)

	withMsg := NewError(KindAuth, "invalid key", nil)
	assert.Equal(t, "model: auth: invalid key", withMsg.Error())
}

// TestErrorKind_String verifies the kind names.
func TestErrorKind_String(t *testing.T) {
	assert.Equal(t, "rate_limited", KindRateLimited.String())
	assert.Equal(t, "timeout", KindTimeout.String())
	assert.Equal(t, "unavailable", KindUnavailable.String())
	assert.Equal(t, "invalid_request", KindInvalidRequest.String())
	assert.Equal(t, "auth", KindAuth.String())
	assert.Equal(t, "unknown", KindUnknown.String())
	assert.Equal(t, "unknown", ErrorKind(99).String())
}
