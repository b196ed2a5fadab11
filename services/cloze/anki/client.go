// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package anki is a client for the AnkiConnect add-on.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultURL is where AnkiConnect listens by default.
	DefaultURL = "http://127.0.0.1:8765"

	// DefaultRequestDelay spaces consecutive calls.
	DefaultRequestDelay = 200 * time.Millisecond

	// DefaultTimeout bounds a single call.
	DefaultTimeout = 30 * time.Second

	// APIVersion is the AnkiConnect protocol version requested.
	APIVersion = 6

	maxErrorBody = 4 << 10
)

// request is the AnkiConnect request envelope.
type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

// response is the AnkiConnect response envelope.
type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-call timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithRequestDelay sets the minimum spacing between calls. Zero disables
// the delay.
func WithRequestDelay(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to AnkiConnect over HTTP.
//
// Description:
//
//	Every action is a POST of {action, version, params}. A non-null "error"
//	field, a non-200 status or a transport failure all surface as a
//	*CallError, never a panic. Calls pass through a rate limiter so a burst
//	of notes does not overwhelm Anki.
//
// Thread Safety:
//
//	Safe for concurrent use. The limiter serialises call starts, not calls.
type Client struct {
	url        string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// NewClient creates a client for the AnkiConnect endpoint at url.
//
// Example:
//
//	client := anki.NewClient(anki.DefaultURL, anki.WithRequestDelay(0))
//	version, err := client.Version(ctx)
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:        url,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(DefaultRequestDelay), 1),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the endpoint the client posts to.
func (c *Client) URL() string {
	return c.url
}

// Invoke performs one AnkiConnect action.
//
// Inputs:
//   - ctx: Cancels the rate limiter wait and the HTTP call.
//   - action: Action name.
//   - params: Marshalled as "params"; nil omits the field.
//   - out: Receives the decoded "result" when non-nil. A null result is
//     then reported as KindEmptyResult.
//
// Outputs:
//   - error: *CallError on any failure.
func (c *Client) Invoke(ctx context.Context, action string, params, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return &CallError{Action: action, Kind: KindTransport, Message: "rate limiter wait", Cause: err}
	}

	body, err := json.Marshal(request{Action: action, Version: APIVersion, Params: params})
	if err != nil {
		return &CallError{Action: action, Kind: KindDecode, Message: "marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return &CallError{Action: action, Kind: KindTransport, Message: "create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	// AnkiConnect's server handles keep-alive poorly.
	req.Close = true

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("ankiconnect call failed", slog.String("action", action), slog.String("error", err.Error()))
		return &CallError{Action: action, Kind: KindTransport, Message: "http request", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &CallError{Action: action, Kind: KindStatus, Message: fmt.Sprintf("status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))}
	}

	var env response
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &CallError{Action: action, Kind: KindDecode, Message: "decode response", Cause: err}
	}
	if env.Error != nil {
		return &CallError{Action: action, Kind: KindAction, Message: *env.Error}
	}

	c.logger.Debug("ankiconnect call",
		slog.String("action", action),
		slog.Duration("elapsed", time.Since(start)))

	if out == nil {
		return nil
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return &CallError{Action: action, Kind: KindEmptyResult, Message: "null result"}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &CallError{Action: action, Kind: KindDecode, Message: "decode result", Cause: err}
	}
	return nil
}

// Version returns the AnkiConnect protocol version. It doubles as the
// connectivity probe.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.Invoke(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// CreateDeck creates deck. Existing decks are left untouched.
func (c *Client) CreateDeck(ctx context.Context, deck string) error {
	return c.Invoke(ctx, "createDeck", map[string]any{"deck": deck}, nil)
}

// ModelNames lists the note type names.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	if err := c.Invoke(ctx, "modelNames", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateModel creates a note type.
func (c *Client) CreateModel(ctx context.Context, nt NoteType) error {
	params := map[string]any{
		"modelName":     nt.Name,
		"inOrderFields": nt.Fields,
		"css":           nt.CSS,
		"isCloze":       nt.IsCloze,
		"cardTemplates": nt.Templates,
	}
	return c.Invoke(ctx, "createModel", params, nil)
}

// UpdateModelStyling replaces the CSS of a note type.
func (c *Client) UpdateModelStyling(ctx context.Context, modelName, css string) error {
	params := map[string]any{
		"model": map[string]any{"name": modelName, "css": css},
	}
	return c.Invoke(ctx, "updateModelStyling", params, nil)
}

// UpdateModelTemplates replaces the front and back of each named template.
func (c *Client) UpdateModelTemplates(ctx context.Context, modelName string, templates []CardTemplate) error {
	byName := make(map[string]map[string]string, len(templates))
	for _, t := range templates {
		byName[t.Name] = map[string]string{"Front": t.Front, "Back": t.Back}
	}
	params := map[string]any{
		"model": map[string]any{"name": modelName, "templates": byName},
	}
	return c.Invoke(ctx, "updateModelTemplates", params, nil)
}

// note is the addNote payload.
type note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Options   noteOptions       `json:"options"`
	Tags      []string          `json:"tags"`
}

type noteOptions struct {
	AllowDuplicate bool `json:"allowDuplicate"`
}

// AddNote adds a note with text in its Text field.
//
// Duplicates are always allowed so re-running on the same source is never
// blocked by earlier notes.
//
// Outputs:
//   - int64: The new note id.
//   - error: *CallError on failure.
func (c *Client) AddNote(ctx context.Context, deck, modelName, text string, tags []string) (int64, error) {
	if tags == nil {
		tags = []string{}
	}
	n := note{
		DeckName:  deck,
		ModelName: modelName,
		Fields:    map[string]string{TextField: text},
		Options:   noteOptions{AllowDuplicate: true},
		Tags:      tags,
	}
	var id int64
	if err := c.Invoke(ctx, "addNote", map[string]any{"note": n}, &id); err != nil {
		return 0, err
	}
	return id, nil
}
