//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
	"trpc.group/trpc-go/trpc-eval-go/evalrun"
)

type caseExecutionParam struct {
	idx      int
	ctx      context.Context
	testCase *dataset.TestCase
	run      *runState
	results  []*evalrun.TestCaseResult
	wg       *sync.WaitGroup
}

func (p *caseExecutionParam) reset() {
	p.idx = 0
	p.ctx = nil
	p.testCase = nil
	p.run = nil
	p.results = nil
	p.wg = nil
}

var caseExecutionParamPool = &sync.Pool{
	New: func() any { return new(caseExecutionParam) },
}

func createCaseExecutionPool(size int) (*ants.PoolWithFunc, error) {
	if size <= 0 {
		return nil, errors.New("pool size must be greater than 0")
	}
	pool, err := ants.NewPoolWithFunc(size, func(args any) {
		param, ok := args.(*caseExecutionParam)
		if !ok {
			panic("case execution pool args type error")
		}
		wg := param.wg
		defer func() {
			wg.Done()
			param.reset()
			caseExecutionParamPool.Put(param)
		}()
		param.results[param.idx] = param.run.runner.executeCase(param.ctx, param.run, param.testCase)
	})
	if err != nil {
		return nil, fmt.Errorf("create case execution pool: %w", err)
	}
	return pool, nil
}
