// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the HTTP request and response bodies.
package datatypes

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/AleutianAI/clozecode/services/cloze/ast"
	"github.com/AleutianAI/clozecode/services/cloze/synth"
)

// MaxCodeBytes bounds the "code" field. Matches the parser's default limit.
const MaxCodeBytes = ast.DefaultMaxFileSize

// ErrCodeRequired is reported when "code" is missing or empty.
var ErrCodeRequired = errors.New("Code is required")

var generateValidate = validator.New()

// TagList is a list of tags that also accepts a comma-separated string.
//
//	"tags": ["a", "b"]
//	"tags": "a, b"
type TagList []string

// UnmarshalJSON accepts an array of strings, a string, or null.
func (t *TagList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = nil
		return nil
	}
	if data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("tags: %w", err)
		}
		*t = list
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("tags: expected array or string: %w", err)
	}
	*t = SplitTags(s)
	return nil
}

// SplitTags splits a comma-separated tag string, trimming each entry and
// dropping empty ones.
func SplitTags(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// GenerateRequest is the body of POST /generate.
//
// # Fields
//
//   - Code: Required. Source text to turn into cards.
//   - Title: Optional card title.
//   - Deck: Optional. Defaults to "dev".
//   - Tags: Optional array or comma-separated string. Defaults to
//     ["anki-cloze-code"].
//   - Language: Optional language name or file name ("tsx", "app.js").
type GenerateRequest struct {
	Code     string  `json:"code" validate:"required,max=2097152"`
	Title    string  `json:"title" validate:"max=200"`
	Deck     string  `json:"deck" validate:"max=200"`
	Tags     TagList `json:"tags" validate:"max=50,dive,max=100"`
	Language string  `json:"language" validate:"max=100"`
}

// Validate checks the request. A missing code yields ErrCodeRequired so
// the handler can answer with the fixed message.
func (r *GenerateRequest) Validate() error {
	err := generateValidate.Struct(r)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Field() == "Code" && fe.Tag() == "required" {
				return ErrCodeRequired
			}
		}
	}
	return err
}

// ToSubmission applies request defaults and converts to a synth.Submission.
func (r *GenerateRequest) ToSubmission() synth.Submission {
	deck := strings.TrimSpace(r.Deck)
	if deck == "" {
		deck = synth.DefaultDeck
	}
	tags := []string(r.Tags)
	if len(tags) == 0 {
		tags = []string{synth.DefaultTag}
	}
	return synth.Submission{
		Source:   r.Code,
		Title:    r.Title,
		Deck:     deck,
		Tags:     tags,
		Language: r.Language,
	}
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string   `json:"status"`
	Languages []string `json:"languages"`
}

// CardView is one rendered card in a preview.
type CardView struct {
	Index  int    `json:"index"`
	Total  int    `json:"total"`
	Blanks int    `json:"blanks"`
	Text   string `json:"text"`
}

// PreviewResponse is the body of POST /preview.
type PreviewResponse struct {
	Cards []CardView `json:"cards"`
}
