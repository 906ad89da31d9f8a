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
	"net"
	"time"
)

// ErrorKind classifies provider failures for retry decisions.
type ErrorKind int

// Provider failure kinds.
const (
	// KindUnknown is an unclassified failure, treated as permanent.
	KindUnknown ErrorKind = iota
	// KindRateLimited is a throttling rejection, retryable.
	KindRateLimited
	// KindTimeout is a request deadline expiry, retryable.
	KindTimeout
	// KindUnavailable is a transient provider or network failure, retryable.
	KindUnavailable
	// KindInvalidRequest is a malformed or rejected request, permanent.
	KindInvalidRequest
	// KindAuth is an authentication or authorization failure, permanent.
	KindAuth
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindInvalidRequest:
		return "invalid_request"
	case KindAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind
	// Message describes the failure.
	Message string
	// RetryAfter is the server-provided wait hint, zero when absent.
	RetryAfter time.Duration
	// Err is the underlying cause, when available.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("model: %s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("model: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("model: %s", e.Kind)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure is worth retrying.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// NewError creates a classified error wrapping cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Retryable reports whether err is worth retrying. Classified errors answer
// for themselves; deadline expiries and network timeouts are retryable;
// everything else, including cancellation, is not.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// RetryAfterHint returns the server-provided wait hint carried by err, zero
// when err carries none.
func RetryAfterHint(err error) time.Duration {
	var e *Error
	if errors.As(err, &e) {
		return e.RetryAfter
	}
	return 0
}
