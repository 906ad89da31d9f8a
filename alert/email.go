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
	"fmt"
	"net/smtp"
	"strings"
)

const defaultSMTPPort = 587

// SendMailFunc sends one message through an SMTP server. It matches
// smtp.SendMail so tests can substitute a recorder.
type SendMailFunc func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

// EmailConfig configures the SMTP channel.
type EmailConfig struct {
	// Host is the SMTP server host.
	Host string
	// Port is the SMTP server port, 587 when zero.
	Port int
	// Username authenticates against the server. Empty disables auth.
	Username string
	// Password pairs with Username.
	Password string
	// From is the sender address.
	From string
	// To lists the recipient addresses.
	To []string
}

// EmailChannel delivers events through an SMTP server.
type EmailChannel struct {
	cfg      EmailConfig
	sendMail SendMailFunc
}

// EmailOption configures an email channel.
type EmailOption func(*EmailChannel)

// WithSendMailFunc replaces the SMTP send function.
func WithSendMailFunc(fn SendMailFunc) EmailOption {
	return func(c *EmailChannel) {
		c.sendMail = fn
	}
}

// NewEmailChannel creates an SMTP-backed channel.
func NewEmailChannel(cfg EmailConfig, opt ...EmailOption) (*EmailChannel, error) {
	if cfg.Host == "" {
		return nil, errors.New("email host is empty")
	}
	if cfg.From == "" {
		return nil, errors.New("email sender is empty")
	}
	if len(cfg.To) == 0 {
		return nil, errors.New("email has no recipients")
	}
	if cfg.Port == 0 {
		cfg.Port = defaultSMTPPort
	}
	c := &EmailChannel{
		cfg:      cfg,
		sendMail: smtp.SendMail,
	}
	for _, o := range opt {
		o(c)
	}
	return c, nil
}

// Name implements Channel.
func (c *EmailChannel) Name() string {
	return "email"
}

// Send implements Channel.
func (c *EmailChannel) Send(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}
	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	if err := c.sendMail(addr, auth, c.cfg.From, c.cfg.To, c.compose(event)); err != nil {
		return fmt.Errorf("send alert mail: %w", err)
	}
	return nil
}

func (c *EmailChannel) compose(event *Event) []byte {
	lines := []string{
		fmt.Sprintf("From: %s", c.cfg.From),
		fmt.Sprintf("To: %s", strings.Join(c.cfg.To, ", ")),
		fmt.Sprintf("Subject: %s", subjectFor(event)),
		"",
		event.Message,
	}
	if event.DatasetID != "" {
		lines = append(lines, fmt.Sprintf("Dataset: %s", event.DatasetID))
	}
	if event.RunID != "" {
		lines = append(lines, fmt.Sprintf("Run: %s", event.RunID))
	}
	if event.ReportURL != "" {
		lines = append(lines, fmt.Sprintf("Report: %s", event.ReportURL))
	}
	return []byte(strings.Join(lines, "\r\n") + "\r\n")
}

func subjectFor(event *Event) string {
	var topic string
	switch event.Type {
	case TypeRegression:
		topic = "evaluation regression"
	case TypeBudget:
		topic = "budget alert"
	case TypeRunFailure:
		topic = "evaluation run failure"
	default:
		topic = string(event.Type)
	}
	return fmt.Sprintf("[%s] %s", strings.ToUpper(event.Severity.String()), topic)
}
