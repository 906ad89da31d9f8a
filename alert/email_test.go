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
	"errors"
	"net/smtp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
	"trpc.group/trpc-go/trpc-eval-go/cost"
)

type mailRecorder struct {
	addr string
	auth smtp.Auth
	from string
	to   []string
	msg  []byte

	err    error
	called bool
}

func (r *mailRecorder) send(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
	r.called = true
	r.addr = addr
	r.auth = auth
	r.from = from
	r.to = to
	r.msg = msg
	return r.err
}

func testEmailConfig() EmailConfig {
	return EmailConfig{
		Host:     "smtp.example.com",
		Username: "alerts",
		Password: "secret",
		From:     "alerts@example.com",
		To:       []string{"oncall@example.com", "team@example.com"},
	}
}

// TestEmailChannel_Send verifies the composed message and the SMTP address.
func TestEmailChannel_Send(t *testing.T) {
	rec := &mailRecorder{}
	ch, err := NewEmailChannel(testEmailConfig(), WithSendMailFunc(rec.send))
	require.NoError(t, err)
	assert.Equal(t, "email", ch.Name())

	event := NewRegressionEvent("qa-v1", "run-1", baseline.Regression{
		Metric:   baseline.MetricAccuracy,
		Severity: baseline.SeverityCritical,
		Message:  "accuracy dropped 11.0 points, from 94.5% to 83.5%",
	}, eventTime)
	event.ReportURL = "https://eval.example.com/runs/run-1"

	require.NoError(t, ch.Send(context.Background(), event))

	assert.Equal(t, "smtp.example.com:587", rec.addr)
	assert.NotNil(t, rec.auth)
	assert.Equal(t, "alerts@example.com", rec.from)
	assert.Equal(t, []string{"oncall@example.com", "team@example.com"}, rec.to)

	msg := string(rec.msg)
	assert.Contains(t, msg, "From: alerts@example.com\r\n")
	assert.Contains(t, msg, "To: oncall@example.com, team@example.com\r\n")
	assert.Contains(t, msg, "Subject: [CRITICAL] evaluation regression\r\n")
	assert.Contains(t, msg, "\r\n\r\naccuracy dropped 11.0 points")
	assert.Contains(t, msg, "Dataset: qa-v1\r\n")
	assert.Contains(t, msg, "Run: run-1\r\n")
	assert.Contains(t, msg, "Report: https://eval.example.com/runs/run-1\r\n")
}

// TestEmailChannel_SubjectPerEventType verifies subjects reflect severity
// and event kind.
func TestEmailChannel_SubjectPerEventType(t *testing.T) {
	rec := &mailRecorder{}
	ch, err := NewEmailChannel(testEmailConfig(), WithSendMailFunc(rec.send))
	require.NoError(t, err)

	budget := NewBudgetEvent(cost.Event{
		Type:     cost.EventThresholdCrossed,
		Period:   cost.PeriodMonthly,
		SpendUSD: 40,
		LimitUSD: 50,
	}, eventTime)
	require.NoError(t, ch.Send(context.Background(), budget))
	assert.Contains(t, string(rec.msg), "Subject: [MAJOR] budget alert\r\n")

	failure := NewRunFailureEvent("qa-v1", "run-9", errors.New("boom"), eventTime)
	require.NoError(t, ch.Send(context.Background(), failure))
	assert.Contains(t, string(rec.msg), "Subject: [CRITICAL] evaluation run failure\r\n")
}

// TestEmailChannel_NoAuthWithoutUsername verifies anonymous relays get a nil
// auth instead of empty credentials.
func TestEmailChannel_NoAuthWithoutUsername(t *testing.T) {
	cfg := testEmailConfig()
	cfg.Username = ""
	cfg.Password = ""
	cfg.Port = 25

	rec := &mailRecorder{}
	ch, err := NewEmailChannel(cfg, WithSendMailFunc(rec.send))
	require.NoError(t, err)

	require.NoError(t, ch.Send(context.Background(), testEvent()))
	assert.Equal(t, "smtp.example.com:25", rec.addr)
	assert.Nil(t, rec.auth)
}

// TestEmailChannel_SendFailure verifies SMTP errors are wrapped and surfaced.
func TestEmailChannel_SendFailure(t *testing.T) {
	rec := &mailRecorder{err: errors.New("relay refused")}
	ch, err := NewEmailChannel(testEmailConfig(), WithSendMailFunc(rec.send))
	require.NoError(t, err)

	err = ch.Send(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send alert mail")
	assert.Contains(t, err.Error(), "relay refused")
}

// TestEmailChannel_ContextCancelled verifies a cancelled context short
// circuits before anything is sent.
func TestEmailChannel_ContextCancelled(t *testing.T) {
	rec := &mailRecorder{}
	ch, err := NewEmailChannel(testEmailConfig(), WithSendMailFunc(rec.send))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = ch.Send(ctx, testEvent())
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, rec.called)
}

// TestNewEmailChannel_Validation verifies required config fields.
func TestNewEmailChannel_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EmailConfig)
		want   string
	}{
		{name: "missing host", mutate: func(c *EmailConfig) { c.Host = "" }, want: "host is empty"},
		{name: "missing sender", mutate: func(c *EmailConfig) { c.From = "" }, want: "sender is empty"},
		{name: "no recipients", mutate: func(c *EmailConfig) { c.To = nil }, want: "no recipients"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testEmailConfig()
			tc.mutate(&cfg)
			_, err := NewEmailChannel(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
