// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"time"

	"github.com/AleutianAI/clozecode/services/cloze/anki"
	"github.com/AleutianAI/clozecode/services/cloze/highlight"
	"github.com/AleutianAI/clozecode/services/cloze/synth"
)

// ClozecodeConfig is the contents of ~/.clozecode/clozecode.yaml.
type ClozecodeConfig struct {
	Anki    AnkiConfig    `yaml:"anki"`
	Cards   CardsConfig   `yaml:"cards"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// AnkiConfig locates AnkiConnect.
type AnkiConfig struct {
	URL          string        `yaml:"url" validate:"required,url"`
	ModelName    string        `yaml:"model_name" validate:"required"`
	RequestDelay time.Duration `yaml:"request_delay" validate:"gte=0"` // e.g. 200ms
	Timeout      time.Duration `yaml:"timeout" validate:"gt=0"`
}

// CardsConfig holds card generation defaults.
type CardsConfig struct {
	Deck             string   `yaml:"deck" validate:"required"`
	Tags             []string `yaml:"tags" validate:"dive,required"`
	MaxBlanksPerCard int      `yaml:"max_blanks_per_card" validate:"gte=1,lte=1000"`
	ContextLines     int      `yaml:"context_lines" validate:"gte=-1"` // -1 shows the whole file
	BreadcrumbDepth  int      `yaml:"breadcrumb_depth" validate:"gte=0"`
	Style            string   `yaml:"style"` // chroma style name
	Language         string   `yaml:"language" validate:"required"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Port int `yaml:"port" validate:"gte=1,lte=65535"`

	// CORSOrigins lists browser origins allowed to call the API. "*" allows
	// any origin; an empty list turns CORS handling off.
	CORSOrigins []string `yaml:"cors_origins" validate:"omitempty,dive,eq=*|http_url"`
}

// LoggingConfig configures pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() ClozecodeConfig {
	return ClozecodeConfig{
		Anki: AnkiConfig{
			URL:          anki.DefaultURL,
			ModelName:    synth.DefaultModelName,
			RequestDelay: anki.DefaultRequestDelay,
			Timeout:      anki.DefaultTimeout,
		},
		Cards: CardsConfig{
			Deck:             synth.DefaultDeck,
			Tags:             []string{synth.DefaultTag},
			MaxBlanksPerCard: synth.DefaultMaxBlanksPerCard,
			ContextLines:     synth.FullFileContext,
			BreadcrumbDepth:  0,
			Style:            highlight.DefaultStyle,
			Language:         synth.DefaultLanguage,
		},
		Server: ServerConfig{Port: 4000, CORSOrigins: []string{"*"}},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SynthOptions converts the card settings to engine options.
func (c ClozecodeConfig) SynthOptions() synth.Options {
	return synth.Options{
		MaxBlanksPerCard: c.Cards.MaxBlanksPerCard,
		ContextLines:     c.Cards.ContextLines,
		BreadcrumbDepth:  c.Cards.BreadcrumbDepth,
		ModelName:        c.Anki.ModelName,
		Language:         c.Cards.Language,
	}
}
