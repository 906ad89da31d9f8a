//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// Package exactmatch provides deep structural equality scoring.
package exactmatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"trpc.group/trpc-go/trpc-eval-go/scorer"
)

// Name is the default registry name of this scorer.
const Name = "exact_match"

var _ scorer.Scorer = (*Scorer)(nil)

// Scorer compares actual and expected values structurally. The score is
// binary: 1.0 on a full match, 0.0 otherwise, and the reason names the
// first differing path found in a deterministic depth-first walk.
type Scorer struct {
	name           string
	ignoreKeyOrder bool
	ignorePaths    map[string]struct{}
}

// Option configures the exact match scorer.
type Option func(*Scorer)

// WithName overrides the registry name, allowing several differently
// configured instances to coexist.
func WithName(name string) Option {
	return func(s *Scorer) {
		if name != "" {
			s.name = name
		}
	}
}

// WithIgnoreKeyOrder makes sequence comparison order-insensitive, matching
// elements as multisets. Mapping keys always compare order-insensitively.
func WithIgnoreKeyOrder(ignore bool) Option {
	return func(s *Scorer) {
		s.ignoreKeyOrder = ignore
	}
}

// WithIgnorePaths excludes the given dotted paths from comparison,
// e.g. "metadata.timestamp".
func WithIgnorePaths(paths ...string) Option {
	return func(s *Scorer) {
		for _, p := range paths {
			if p != "" {
				s.ignorePaths[p] = struct{}{}
			}
		}
	}
}

// New creates an exact match scorer.
func New(opt ...Option) *Scorer {
	s := &Scorer{
		name:        Name,
		ignorePaths: make(map[string]struct{}),
	}
	for _, o := range opt {
		o(s)
	}
	return s
}

// Name implements scorer.Scorer.
func (s *Scorer) Name() string {
	return s.name
}

// Score implements scorer.Scorer.
func (s *Scorer) Score(ctx context.Context, in *scorer.Input) (*scorer.Result, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context is nil")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if in == nil {
		return nil, fmt.Errorf("input is nil")
	}
	actual, err := normalize(in.Actual)
	if err != nil {
		return nil, fmt.Errorf("normalize actual: %w", err)
	}
	expected, err := normalize(in.Expected)
	if err != nil {
		return nil, fmt.Errorf("normalize expected: %w", err)
	}
	if diffPath, ok := s.diff("", actual, expected); !ok {
		return &scorer.Result{
			ScorerName: s.name,
			Score:      0.0,
			Passed:     false,
			Reason:     fmt.Sprintf("mismatch at %s", diffPath),
		}, nil
	}
	return &scorer.Result{
		ScorerName: s.name,
		Score:      1.0,
		Passed:     true,
		Reason:     "values match",
	}, nil
}

// normalize reduces a value to canonical JSON shapes (map[string]any, []any,
// float64, string, bool, nil) so that YAML- and JSON-sourced documents
// compare consistently.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// diff walks both values depth first and returns the first differing path
// with ok=false, or ok=true when the values match. Keys are visited in
// sorted order so the reported path is deterministic.
func (s *Scorer) diff(path string, actual, expected any) (string, bool) {
	if _, skip := s.ignorePaths[path]; skip && path != "" {
		return "", true
	}
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return displayPath(path), false
		}
		keys := unionKeys(act, exp)
		for _, k := range keys {
			childPath := joinPath(path, k)
			av, inActual := act[k]
			ev, inExpected := exp[k]
			if _, skip := s.ignorePaths[childPath]; skip {
				continue
			}
			if !inActual || !inExpected {
				return displayPath(childPath), false
			}
			if p, ok := s.diff(childPath, av, ev); !ok {
				return p, false
			}
		}
		return "", true
	case []any:
		act, ok := actual.([]any)
		if !ok {
			return displayPath(path), false
		}
		if s.ignoreKeyOrder {
			return s.diffUnordered(path, act, exp)
		}
		for i := 0; i < len(exp) && i < len(act); i++ {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			if p, ok := s.diff(childPath, act[i], exp[i]); !ok {
				return p, false
			}
		}
		if len(act) != len(exp) {
			return displayPath(fmt.Sprintf("%s[%d]", path, min(len(act), len(exp)))), false
		}
		return "", true
	default:
		if actual != expected {
			return displayPath(path), false
		}
		return "", true
	}
}

// diffUnordered matches sequence elements as multisets: every expected
// element must pair with a distinct equal actual element.
func (s *Scorer) diffUnordered(path string, act, exp []any) (string, bool) {
	if len(act) != len(exp) {
		return displayPath(fmt.Sprintf("%s[%d]", path, min(len(act), len(exp)))), false
	}
	used := make([]bool, len(act))
	for i, ev := range exp {
		matched := false
		for j, av := range act {
			if used[j] {
				continue
			}
			if _, ok := s.diff(fmt.Sprintf("%s[%d]", path, i), av, ev); ok {
				used[j] = true
				matched = true
				break
			}
		}
		if !matched {
			return displayPath(fmt.Sprintf("%s[%d]", path, i)), false
		}
	}
	return "", true
}

func unionKeys(a, b map[string]any) []string {
	set := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		set[k] = struct{}{}
	}
	for k := range b {
		set[k] = struct{}{}
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func displayPath(path string) string {
	if strings.TrimSpace(path) == "" {
		return "(root)"
	}
	return path
}
