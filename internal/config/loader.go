// SPDX-License-Identifier: MIT

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Load reads configuration with precedence: ENV > File > Defaults.
// The file is parsed strictly; unknown keys are fatal. An empty path loads
// defaults plus environment overrides.
func Load(path string) (Config, error) {
	cfg := New()

	if path != "" {
		if err := loadFile(&cfg, path); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}

	applyEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFile parses a TOML or YAML file into cfg with STRICT parsing.
// Unknown fields cause a fatal error to prevent misconfiguration.
func loadFile(cfg *Config, path string) error {
	path = filepath.Clean(path)

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		return decodeTOML(cfg, data)
	case ".yaml", ".yml":
		return decodeYAML(cfg, data)
	case ".json":
		// JSON is a YAML subset, so the strict YAML decoder covers it.
		return decodeYAML(cfg, data)
	default:
		return fmt.Errorf("unsupported config format: %s (use .toml, .yaml, .yml or .json)", ext)
	}
}

func decodeTOML(cfg *Config, data []byte) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	if err := dec.Decode(cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return fmt.Errorf("strict config parse error: unknown keys present:\n%s", strict.String())
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}
	return nil
}

func decodeYAML(cfg *Config, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // Reject unknown fields

	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("strict config parse error: %w", err)
	}

	// Strict: no multiple documents or trailing content
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return nil
}
