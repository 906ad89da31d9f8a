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
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-eval-go/cost"
	"trpc.group/trpc-go/trpc-eval-go/evalrun"
	"trpc.group/trpc-go/trpc-eval-go/evaluation"
	"trpc.group/trpc-go/trpc-eval-go/metrics"
)

var (
	runModel   string
	runScorers []string
	runCostCSV string

	runCmd = &cobra.Command{
		Use:   "run [dataset-id]",
		Short: "Evaluate a dataset against the configured model",
		Args:  cobra.ExactArgs(1),
		RunE:  runEvaluation,
	}

	compareModels  string
	compareScorers []string

	compareCmd = &cobra.Command{
		Use:   "compare [dataset-id]",
		Short: "Evaluate several models on one dataset and name the winner",
		Args:  cobra.ExactArgs(1),
		RunE:  runComparison,
	}
)

func init() {
	runCmd.Flags().StringVarP(&runModel, "model", "m", "", "model name override")
	runCmd.Flags().StringSliceVar(&runScorers, "scorers", nil, "scorer names to apply (default: all configured)")
	runCmd.Flags().StringVar(&runCostCSV, "cost-csv", "", "write the cost snapshot to this CSV file")

	compareCmd.Flags().StringVar(&compareModels, "models", "", "comma-separated model names to compare (required)")
	compareCmd.Flags().StringSliceVar(&compareScorers, "scorers", nil, "scorer names to apply (default: all configured)")
	compareCmd.MarkFlagRequired("models")
}

// signalContext cancels on SIGINT/SIGTERM so interrupted runs are persisted
// as cancelled instead of vanishing.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runEvaluation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx, stop := signalContext()
	defer stop()
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	outcome, runErr := eng.evaluator.Run(ctx, args[0], eng.runConfig(runModel, runScorers))
	if outcome != nil && outcome.Report != nil {
		printOutcome(outcome)
	}
	if runErr != nil {
		return runErr
	}
	if runCostCSV != "" {
		if err := writeCostCSV(eng.tracker, runCostCSV); err != nil {
			return err
		}
		fmt.Printf("Cost snapshot written to %s\n", runCostCSV)
	}
	return nil
}

func printOutcome(outcome *evaluation.RunOutcome) {
	fmt.Println(metrics.FormatText(outcome.Report))
	if outcome.Run.Status != evalrun.StatusCompleted {
		return
	}
	if outcome.BaselineMissing {
		fmt.Printf("No active baseline yet. Promote this run with: trpc-eval baseline promote %s\n",
			outcome.Run.ID)
		return
	}
	if len(outcome.Regressions) == 0 {
		fmt.Println("No regressions against the active baseline.")
		return
	}
	fmt.Printf("Regressions against the active baseline (%d):\n", len(outcome.Regressions))
	for _, reg := range outcome.Regressions {
		fmt.Printf("  [%s] %s\n", strings.ToUpper(reg.Severity.String()), reg.Message)
	}
}

func runComparison(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	names := splitList(compareModels)
	if len(names) < 2 {
		return fmt.Errorf("--models needs at least two comma-separated names, got %q", compareModels)
	}
	ctx, stop := signalContext()
	defer stop()
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	cfgs := make([]evaluation.RunConfig, 0, len(names))
	for _, name := range names {
		cfgs = append(cfgs, eng.runConfig(name, compareScorers))
	}
	comparison, err := eng.evaluator.CompareModels(ctx, args[0], cfgs)
	if err != nil {
		return err
	}

	fmt.Printf("Model comparison on %s\n\n", comparison.DatasetID)
	fmt.Printf("  %-28s %9s %10s %12s %10s\n", "MODEL", "ACCURACY", "PASS RATE", "AVG LATENCY", "COST (USD)")
	for _, outcome := range comparison.Outcomes {
		r := outcome.Report
		fmt.Printf("  %-28s %8.1f%% %9.1f%% %10.0fms %10.4f\n",
			outcome.Run.Model.ID, r.Accuracy*100, r.PassRate*100, r.AvgLatencyMs, r.TotalCostUSD)
	}
	fmt.Printf("\nWinner: %s\n", comparison.Winner)

	drivers, err := eng.tracker.TopDrivers(cost.DimensionModel, len(names))
	if err == nil && len(drivers) > 0 {
		fmt.Println("\nSpend by model:")
		for _, d := range drivers {
			fmt.Printf("  %-28s $%.4f (%d cases)\n", d.Value, d.SpendUSD, d.Cases)
		}
	}
	return nil
}

func writeCostCSV(tracker *cost.Tracker, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create cost csv: %w", err)
	}
	if err := tracker.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write cost csv: %w", err)
	}
	return f.Close()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
