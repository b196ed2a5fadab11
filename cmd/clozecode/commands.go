// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"

	"github.com/AleutianAI/clozecode/cmd/clozecode/config"
)

// rootOptions are the persistent flags.
type rootOptions struct {
	configPath string
	logLevel   string
	jsonLogs   bool
	ankiURL    string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "clozecode",
		Short: "Turn source files into cloze flashcards in Anki",
		Long: `clozecode parses a TypeScript or JavaScript file, blanks out its
identifiers, literals and operators, and adds the resulting syntax-highlighted
cloze cards to Anki through the AnkiConnect add-on.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.clozecode/clozecode.yaml)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonLogs, "json-logs", false, "write logs as JSON")
	rootCmd.PersistentFlags().StringVar(&opts.ankiURL, "anki-url", "", "AnkiConnect URL")

	rootCmd.AddCommand(
		newGenerateCmd(opts),
		newServeCmd(opts),
		newUpdateTemplateCmd(opts),
	)
	return rootCmd
}

// loadConfig resolves the configuration and applies the persistent flags.
func (o *rootOptions) loadConfig() (config.ClozecodeConfig, error) {
	var cfg config.ClozecodeConfig
	if o.configPath != "" {
		var err error
		if cfg, err = config.LoadFrom(o.configPath); err != nil {
			return cfg, err
		}
	} else {
		if err := config.Load(); err != nil {
			return cfg, err
		}
		cfg = config.Global
	}

	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	if o.jsonLogs {
		cfg.Logging.JSON = true
	}
	if o.ankiURL != "" {
		cfg.Anki.URL = o.ankiURL
	}
	return cfg, cfg.Validate()
}

// newAppFromCmd loads config and wires an app writing to the command's
// streams.
func (o *rootOptions) newAppFromCmd(cmd *cobra.Command, mutate func(*config.ClozecodeConfig)) (*app, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	if mutate != nil {
		mutate(&cfg)
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return newApp(cfg, cmd.OutOrStdout(), cmd.ErrOrStderr(), cmd.ErrOrStderr())
}
