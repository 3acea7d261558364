// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the outline configuration.
//
// Defaults are embedded in the binary. A YAML file may override any subset
// of fields; the merged result is validated before use.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigYAML []byte

// DefaultFileName is the config file looked up in the working directory.
const DefaultFileName = "outline.yaml"

// ErrInvalidConfig is returned when a configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete outline configuration.
//
// Thread Safety: Immutable after loading; safe for concurrent use.
type Config struct {
	// InputDir is the directory input file names are relative to.
	InputDir string `yaml:"input_dir" validate:"required"`

	// OutputDir receives <stem>.<format> artifacts.
	OutputDir string `yaml:"output_dir" validate:"required"`

	// Format is the artifact format: json or yaml.
	Format string `yaml:"format" validate:"oneof=json yaml yml"`

	// ProjectRoots are search bases for absolute imports.
	ProjectRoots []string `yaml:"project_roots" validate:"dive,required"`

	// MaxFileSize is the largest accepted source in bytes.
	MaxFileSize int64 `yaml:"max_file_size" validate:"gt=0"`

	// Workers bounds concurrent analyses in batch mode.
	Workers int `yaml:"workers" validate:"gte=1,lte=256"`

	// StoreDir enables snapshot history when non-empty.
	StoreDir string `yaml:"store_dir"`

	Server ServerConfig `yaml:"server"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" validate:"required"`

	// RateLimit is the sustained request rate per second.
	RateLimit float64 `yaml:"rate_limit" validate:"gt=0"`

	// Burst is the token bucket size.
	Burst int `yaml:"burst" validate:"gte=1"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns the embedded default configuration.
func Default() (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(defaultConfigYAML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded default config: %w", err)
	}
	return &cfg, nil
}

// Load returns the defaults overlaid with the file at path.
//
// Description:
//
//	An empty path looks for DefaultFileName in the working directory and
//	silently uses the defaults if it is absent. An explicit path that does
//	not exist is an error.
//
// Outputs:
//   - *Config: Validated configuration.
//   - error: I/O, YAML, or ErrInvalidConfig errors.
func Load(path string) (*Config, error) {
	cfg, err := Default()
	if err != nil {
		return nil, err
	}

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		slog.Debug("loaded config file", slog.String("path", path))
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}
