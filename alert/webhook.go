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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"trpc.group/trpc-go/trpc-eval-go/log"
)

const (
	webhookTimeout     = 10 * time.Second
	webhookMaxRetries  = 3
	webhookBaseBackoff = 1 * time.Second

	contentTypeJSON = "application/json"
)

// WebhookChannel posts events as JSON to an HTTP endpoint. Failed deliveries
// are retried with exponential backoff.
type WebhookChannel struct {
	name        string
	url         string
	headers     map[string]string
	client      *http.Client
	baseBackoff time.Duration
}

// WebhookOption configures a webhook channel.
type WebhookOption func(*WebhookChannel)

// WithWebhookName overrides the default channel name. Useful when several
// webhooks are registered on one dispatcher.
func WithWebhookName(name string) WebhookOption {
	return func(c *WebhookChannel) {
		c.name = name
	}
}

// WithWebhookHeaders adds headers to every delivery, e.g. authentication.
func WithWebhookHeaders(headers map[string]string) WebhookOption {
	return func(c *WebhookChannel) {
		c.headers = headers
	}
}

// WithWebhookHTTPClient replaces the HTTP client.
func WithWebhookHTTPClient(client *http.Client) WebhookOption {
	return func(c *WebhookChannel) {
		c.client = client
	}
}

// NewWebhookChannel creates a webhook channel targeting url.
func NewWebhookChannel(url string, opt ...WebhookOption) (*WebhookChannel, error) {
	if url == "" {
		return nil, errors.New("webhook url is empty")
	}
	c := &WebhookChannel{
		name:        "webhook",
		url:         url,
		client:      &http.Client{Timeout: webhookTimeout},
		baseBackoff: webhookBaseBackoff,
	}
	for _, o := range opt {
		o(c)
	}
	return c, nil
}

// Name implements Channel.
func (c *WebhookChannel) Name() string {
	return c.name
}

// Send implements Channel. The event is posted as JSON, retrying up to
// webhookMaxRetries times with doubling backoff between attempts.
func (c *WebhookChannel) Send(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal alert event: %w", err)
	}

	var lastErr error
	backoff := c.baseBackoff
	for attempt := 0; attempt < webhookMaxRetries; attempt++ {
		if attempt > 0 {
			if err := sleepContext(ctx, backoff); err != nil {
				return err
			}
			backoff *= 2
		}
		if lastErr = c.post(ctx, payload); lastErr == nil {
			return nil
		}
		log.Warnf("webhook %s delivery attempt %d/%d failed: %v",
			c.name, attempt+1, webhookMaxRetries, lastErr)
	}
	return fmt.Errorf("webhook %s failed after %d attempts: %w", c.name, webhookMaxRetries, lastErr)
}

func (c *WebhookChannel) post(ctx context.Context, payload []byte) error {
	reqCtx, cancel := context.WithTimeout(ctx, webhookTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	rsp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("webhook returned status %d", rsp.StatusCode)
	}
	return nil
}

// sleepContext waits for d or until ctx is done, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
