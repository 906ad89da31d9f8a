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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"trpc.group/trpc-go/trpc-eval-go/config"
	"trpc.group/trpc-go/trpc-eval-go/log"
)

var (
	configPath string
	verbose    bool

	rootCmd = &cobra.Command{
		Use:   "trpc-eval",
		Short: "Evaluate AI models against versioned datasets",
		Long: `trpc-eval runs evaluation datasets against a model, scores the outputs,
aggregates metric reports, compares them with the promoted baseline and
tracks spend against budgets.

Examples:
  # Evaluate a dataset with the configured model and scorers
  trpc-eval run qa-smoke

  # Compare two models on the same dataset
  trpc-eval compare qa-smoke --models gpt-4o,gpt-4o-mini

  # Render the latest run as markdown
  trpc-eval report --format markdown

  # Promote a completed run as the dataset baseline
  trpc-eval baseline promote run-1f3a

  # Write a commented starter configuration
  trpc-eval config init`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the configuration file (default ./"+config.DefaultFileName+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "lift the log level to debug")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(datasetCmd)
	rootCmd.AddCommand(baselineCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the configuration and applies the logging settings
// before any command logic runs.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	log.SetLevel(cfg.Log.Level)
	if verbose {
		log.SetLevel(log.LevelDebug)
	}
	return cfg, nil
}

// Execute runs the root command and exits non-zero on any error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
