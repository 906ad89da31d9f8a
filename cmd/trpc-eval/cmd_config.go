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
	"gopkg.in/yaml.v3"

	"trpc.group/trpc-go/trpc-eval-go/config"
)

var (
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage the trpc-eval configuration file",
	}

	configInitPath  string
	configInitForce bool

	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write a commented starter configuration file",
		Args:  cobra.NoArgs,
		RunE:  initConfig,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration after defaults and validation",
		Args:  cobra.NoArgs,
		RunE:  showConfig,
	}
)

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", config.DefaultFileName, "where to write the file")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	if !configInitForce {
		if _, err := os.Stat(configInitPath); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", configInitPath)
		}
	}
	if err := os.WriteFile(configInitPath, []byte(config.DefaultYAML), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", configInitPath, err)
	}
	fmt.Printf("Wrote %s\n", configInitPath)
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}
