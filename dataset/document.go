//
// Tencent is pleased to support the open source community by making trpc-eval-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-eval-go is licensed under the Apache License Version 2.0.
//
//

package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ParseDocument decodes a dataset document. YAML and JSON are accepted;
// format selects the decoder ("yaml", "yml" or "json").
func ParseDocument(data []byte, format string) (*Dataset, error) {
	var d Dataset
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode yaml dataset: %w", err)
		}
	case "json":
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, fmt.Errorf("decode json dataset: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", format)
	}
	return &d, nil
}

// ParseFile reads and decodes a dataset document, sniffing the format from
// the file extension. The document is decoded but not validated.
func ParseFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset file %s: %w", path, err)
	}
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	if ext == "" {
		ext = "yaml"
	}
	d, err := ParseDocument(data, ext)
	if err != nil {
		return nil, fmt.Errorf("parse dataset file %s: %w", path, err)
	}
	return d, nil
}
