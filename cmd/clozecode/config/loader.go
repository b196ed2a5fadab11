// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads ~/.clozecode/clozecode.yaml.
//
// Precedence, lowest first: built-in defaults, the YAML file, a .env file
// in the working directory, process environment, command-line flags (the
// last applied by the caller).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides.
const (
	EnvConfigPath = "CLOZECODE_CONFIG"
	EnvAnkiURL    = "ANKI_CONNECT_URL"
	EnvDeck       = "CLOZECODE_DECK"
	EnvPort       = "CLOZECODE_PORT"
	EnvLogLevel   = "CLOZECODE_LOG_LEVEL"
)

var (
	// Global is a singleton instance
	Global ClozecodeConfig
	once   sync.Once

	// ErrInvalidConfig wraps validation failures.
	ErrInvalidConfig = errors.New("invalid configuration")

	configValidate = validator.New()
)

// Load populates Global once per process. The file is created with
// defaults on first run.
func Load() error {
	var err error
	once.Do(func() {
		// .env is optional.
		_ = godotenv.Load()

		var path string
		path, err = DefaultPath()
		if err != nil {
			return
		}
		Global, err = LoadFrom(path)
	})
	return err
}

// DefaultPath returns $CLOZECODE_CONFIG or ~/.clozecode/clozecode.yaml.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, ".clozecode", "clozecode.yaml"), nil
}

// LoadFrom reads path, creating it with defaults if absent, applies
// environment overrides and validates the result. Keys missing from the
// file keep their defaults.
func LoadFrom(path string) (ClozecodeConfig, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := createDefault(path); err != nil {
			return ClozecodeConfig{}, err
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ClozecodeConfig{}, fmt.Errorf("failed to read the config file %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return ClozecodeConfig{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := applyEnv(&cfg); err != nil {
		return ClozecodeConfig{}, err
	}
	if err := cfg.Validate(); err != nil {
		return ClozecodeConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c ClozecodeConfig) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func applyEnv(cfg *ClozecodeConfig) error {
	if v := os.Getenv(EnvAnkiURL); v != "" {
		cfg.Anki.URL = v
	}
	if v := os.Getenv(EnvDeck); v != "" {
		cfg.Cards.Deck = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidConfig, EnvPort, v)
		}
		cfg.Server.Port = port
	}
	return nil
}

func createDefault(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
