//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

// trpc-eval evaluates AI models against versioned datasets: it runs
// scorers over model outputs, aggregates reports, compares runs against
// promoted baselines, tracks spend and dispatches alerts.
package main

func main() {
	Execute()
}
