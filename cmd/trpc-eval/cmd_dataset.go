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

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-eval-go/dataset"
)

var (
	datasetCmd = &cobra.Command{
		Use:   "dataset",
		Short: "Manage evaluation datasets",
	}

	datasetListCmd = &cobra.Command{
		Use:   "list",
		Short: "List stored dataset ids",
		Args:  cobra.NoArgs,
		RunE:  listDatasets,
	}

	datasetShowCmd = &cobra.Command{
		Use:   "show [dataset-id]",
		Short: "Show a stored dataset",
		Args:  cobra.ExactArgs(1),
		RunE:  showDataset,
	}

	datasetValidateCmd = &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a dataset document without storing it",
		Args:  cobra.ExactArgs(1),
		RunE:  validateDataset,
	}

	datasetCreateCmd = &cobra.Command{
		Use:   "create [file]",
		Short: "Validate and store a dataset document",
		Args:  cobra.ExactArgs(1),
		RunE:  createDataset,
	}
)

func init() {
	datasetCmd.AddCommand(datasetListCmd)
	datasetCmd.AddCommand(datasetShowCmd)
	datasetCmd.AddCommand(datasetValidateCmd)
	datasetCmd.AddCommand(datasetCreateCmd)
}

func listDatasets(cmd *cobra.Command, args []string) error {
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

	ids, err := eng.datasets.List(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No datasets found.")
		return nil
	}
	for _, id := range ids {
		fmt.Println(id)
	}
	return nil
}

func showDataset(cmd *cobra.Command, args []string) error {
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

	ds, err := eng.datasets.Get(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Dataset %s (version %s)\n", ds.ID, ds.Version)
	fmt.Printf("Name: %s\n", ds.Name)
	if ds.Description != "" {
		fmt.Printf("Description: %s\n", ds.Description)
	}
	fmt.Printf("Cases: %d\n", len(ds.Cases))
	for _, tc := range ds.Cases {
		if tc.Category != "" {
			fmt.Printf("  %-24s %s (%s)\n", tc.ID, tc.Name, tc.Category)
			continue
		}
		fmt.Printf("  %-24s %s\n", tc.ID, tc.Name)
	}
	return nil
}

func validateDataset(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}
	ds, err := dataset.ParseFile(args[0])
	if err != nil {
		return err
	}
	if err := ds.Validate(); err != nil {
		var verr *dataset.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("Dataset %s is invalid:\n", verr.DatasetID)
			for _, issue := range verr.Issues() {
				fmt.Printf("  - %v\n", issue)
			}
		}
		return err
	}
	fmt.Printf("Dataset %s is valid: %d cases.\n", ds.ID, len(ds.Cases))
	return nil
}

func createDataset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ds, err := dataset.ParseFile(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	eng, err := newEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	if err := eng.datasets.Create(ctx, ds); err != nil {
		return err
	}
	fmt.Printf("Created dataset %s (version %s) with %d cases.\n", ds.ID, ds.Version, len(ds.Cases))
	return nil
}
