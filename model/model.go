//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package model defines the completion provider contract used to invoke the
// model under evaluation and the judge model.
package model

import "context"

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	// RoleSystem is the system instruction role.
	RoleSystem Role = "system"
	// RoleUser is the user input role.
	RoleUser Role = "user"
	// RoleAssistant is the model output role.
	RoleAssistant Role = "assistant"
)

// Message is one turn of a completion conversation.
type Message struct {
	// Role is the author of the message.
	Role Role `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
}

// NewSystemMessage creates a system message.
func NewSystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates an assistant message.
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// Request is a completion request.
type Request struct {
	// Messages is the conversation so far, oldest first.
	Messages []Message `json:"messages"`
	// Temperature overrides the provider default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
	// MaxTokens caps the completion length when non-nil.
	MaxTokens *int `json:"max_tokens,omitempty"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	// PromptTokens is the number of tokens in the prompt.
	PromptTokens int `json:"prompt_tokens"`
	// CompletionTokens is the number of tokens in the completion.
	CompletionTokens int `json:"completion_tokens"`
	// TotalTokens is the total number of tokens in the exchange.
	TotalTokens int `json:"total_tokens"`
}

// Response is a completion response.
type Response struct {
	// Text is the completion text of the first choice.
	Text string `json:"text"`
	// FinishReason is the provider-reported stop reason, when available.
	FinishReason string `json:"finish_reason,omitempty"`
	// Usage reports token consumption, zero-valued when the provider omits it.
	Usage Usage `json:"usage"`
}

// Provider produces completions. Implementations must be safe for concurrent
// use and must return *Error values so callers can classify failures.
type Provider interface {
	// Name returns the provider's model identifier.
	Name() string
	// Complete performs one completion call.
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// Float64 returns a pointer to v, for optional request fields.
func Float64(v float64) *float64 {
	return &v
}

// Int returns a pointer to v, for optional request fields.
func Int(v int) *int {
	return &v
}
