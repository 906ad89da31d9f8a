//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package alert

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
)

func testEvent() *Event {
	return NewRegressionEvent("qa-v1", "run-1", baseline.Regression{
		Metric:   baseline.MetricAccuracy,
		Severity: baseline.SeverityMajor,
		Message:  "accuracy dropped 6.0 points, from 94.5% to 88.5%",
	}, eventTime)
}

// TestWebhookChannel_Send verifies the event is posted as JSON with the
// configured headers.
func TestWebhookChannel_Send(t *testing.T) {
	var gotBody []byte
	var gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch, err := NewWebhookChannel(srv.URL,
		WithWebhookName("pager"),
		WithWebhookHeaders(map[string]string{"Authorization": "Bearer tok"}),
	)
	require.NoError(t, err)
	assert.Equal(t, "pager", ch.Name())

	event := testEvent()
	require.NoError(t, ch.Send(context.Background(), event))

	assert.Equal(t, "application/json", gotContentType)
	assert.Equal(t, "Bearer tok", gotAuth)

	var decoded Event
	require.NoError(t, json.Unmarshal(gotBody, &decoded))
	assert.Equal(t, event.ID, decoded.ID)
	assert.Equal(t, TypeRegression, decoded.Type)
	assert.Equal(t, baseline.SeverityMajor, decoded.Severity)
	assert.Equal(t, event.Message, decoded.Message)
}

// TestWebhookChannel_RetriesUntilSuccess verifies transient server errors
// are retried and a later success clears them.
func TestWebhookChannel_RetriesUntilSuccess(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ch, err := NewWebhookChannel(srv.URL)
	require.NoError(t, err)
	ch.baseBackoff = time.Millisecond

	require.NoError(t, ch.Send(context.Background(), testEvent()))
	assert.Equal(t, int32(3), attempts.Load())
}

// TestWebhookChannel_FailsAfterRetries verifies delivery gives up after the
// retry budget and reports the last failure.
func TestWebhookChannel_FailsAfterRetries(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ch, err := NewWebhookChannel(srv.URL)
	require.NoError(t, err)
	ch.baseBackoff = time.Millisecond

	err = ch.Send(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 3 attempts")
	assert.Contains(t, err.Error(), "status 503")
	assert.Equal(t, int32(3), attempts.Load())
}

// TestWebhookChannel_ContextCancelled verifies cancellation stops the retry
// loop instead of burning the remaining attempts.
func TestWebhookChannel_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ch, err := NewWebhookChannel(srv.URL)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = ch.Send(ctx, testEvent())
	assert.ErrorIs(t, err, context.Canceled)
}

// TestNewWebhookChannel_EmptyURL verifies construction rejects a missing URL.
func TestNewWebhookChannel_EmptyURL(t *testing.T) {
	_, err := NewWebhookChannel("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "url is empty")
}
