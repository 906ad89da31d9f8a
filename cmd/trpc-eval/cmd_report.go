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

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-eval-go/evaluation"
)

var (
	reportFormat string

	reportCmd = &cobra.Command{
		Use:   "report [run-id]",
		Short: "Render a stored run report (latest run when no id is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  renderReport,
	}
)

func init() {
	reportCmd.Flags().StringVarP(&reportFormat, "format", "f", "text", "output format: text, markdown or json")
}

func renderReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	format, err := evaluation.ParseReportFormat(reportFormat)
	if err != nil {
		return err
	}
	ctx := context.Background()
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}
	out, err := eng.evaluator.Report(ctx, runID, format)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}
