//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-eval-go/baseline"
)

var (
	baselineCmd = &cobra.Command{
		Use:   "baseline",
		Short: "Manage promoted baselines",
	}

	baselinePromoteCmd = &cobra.Command{
		Use:   "promote [run-id]",
		Short: "Promote a completed run as its dataset's active baseline",
		Args:  cobra.ExactArgs(1),
		RunE:  promoteBaseline,
	}

	baselineShowCmd = &cobra.Command{
		Use:   "show [dataset-id]",
		Short: "Show the active baseline of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  showBaseline,
	}
)

func init() {
	baselineCmd.AddCommand(baselinePromoteCmd)
	baselineCmd.AddCommand(baselineShowCmd)
}

func promoteBaseline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	b, err := eng.evaluator.PromoteBaseline(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Promoted baseline %s for dataset %s.\n", b.ID, b.DatasetID)
	printBaseline(b)
	return nil
}

func showBaseline(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	b, err := eng.baselines.Active(ctx, args[0])
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("dataset %s has no active baseline, promote a completed run first", args[0])
	}
	if err != nil {
		return err
	}
	fmt.Printf("Active baseline %s for dataset %s\n", b.ID, b.DatasetID)
	printBaseline(b)

	history, err := eng.baselines.History(ctx, args[0])
	if err == nil && len(history) > 1 {
		fmt.Printf("History: %d promotions\n", len(history))
	}
	return nil
}

func printBaseline(b *baseline.Baseline) {
	fmt.Printf("  Run:         %s\n", b.RunID)
	if b.ModelID != "" {
		fmt.Printf("  Model:       %s\n", b.ModelID)
	}
	if b.DatasetVersion != "" {
		fmt.Printf("  Version:     %s\n", b.DatasetVersion)
	}
	fmt.Printf("  Accuracy:    %.1f%%\n", b.Metrics.Accuracy*100)
	fmt.Printf("  Pass rate:   %.1f%%\n", b.Metrics.PassRate*100)
	fmt.Printf("  Avg latency: %.0fms\n", b.Metrics.AvgLatencyMs)
	fmt.Printf("  Avg cost:    $%.4f\n", b.Metrics.AvgCostUSD)
	fmt.Printf("  Promoted:    %s\n", b.CreatedAt.Format(time.RFC3339))
}
