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
	"fmt"
	"io"
	"path/filepath"

	"github.com/AleutianAI/clozecode/cmd/clozecode/config"
	"github.com/AleutianAI/clozecode/pkg/logging"
	"github.com/AleutianAI/clozecode/pkg/ux"
	"github.com/AleutianAI/clozecode/services/cloze/anki"
	"github.com/AleutianAI/clozecode/services/cloze/ast"
	"github.com/AleutianAI/clozecode/services/cloze/highlight"
	"github.com/AleutianAI/clozecode/services/cloze/synth"
)

var _ synth.Backend = (*anki.Client)(nil)

// app holds what every command needs once config is loaded.
type app struct {
	cfg      config.ClozecodeConfig
	logger   *logging.Logger
	printer  *ux.Printer
	client   *anki.Client
	registry *ast.ParserRegistry
	engine   *synth.Engine
}

// newApp wires the engine from cfg. Logs go to logOut.
func newApp(cfg config.ClozecodeConfig, out, errOut, logOut io.Writer) (*app, error) {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "clozecode",
		JSON:    cfg.Logging.JSON,
		Output:  logOut,
	})
	slogger := logger.Slog()

	client := anki.NewClient(cfg.Anki.URL,
		anki.WithTimeout(cfg.Anki.Timeout),
		anki.WithRequestDelay(cfg.Anki.RequestDelay),
		anki.WithLogger(slogger),
	)
	registry := ast.NewDefaultRegistry(ast.WithLogger(slogger))
	highlighter, err := highlight.New(
		highlight.WithStyle(cfg.Cards.Style),
		highlight.WithLogger(slogger),
	)
	if err != nil {
		_ = logger.Close()
		return nil, fmt.Errorf("create highlighter: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		printer:  ux.NewPrinter(out, errOut),
		client:   client,
		registry: registry,
		engine:   synth.NewEngine(client, registry, highlighter, cfg.SynthOptions(), slogger),
	}, nil
}

func (a *app) Close() {
	_ = a.logger.Close()
}

// languageFor picks the grammar for a file: the explicit flag, the file's
// extension when a parser claims it, or the configured default.
func (a *app) languageFor(flag, path string) string {
	if flag != "" {
		return flag
	}
	if filepath.Ext(path) != "" {
		if _, err := a.registry.Lookup(path); err == nil {
			return path
		}
	}
	return a.cfg.Cards.Language
}
