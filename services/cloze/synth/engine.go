// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package synth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/AleutianAI/clozecode/services/cloze/ast"
)

// Backend is the flashcard store the engine dispatches to.
//
// Every method reports failure as a non-nil error; the engine treats any
// error as "no result" and never inspects its type beyond logging.
type Backend interface {
	// Version probes the backend and returns its protocol version.
	Version(ctx context.Context) (int, error)

	// CreateDeck creates the deck if it does not exist.
	CreateDeck(ctx context.Context, deck string) error

	// EnsureNoteType creates the cloze note type, or overwrites its styling
	// and templates when it already exists. Reports whether it was created.
	EnsureNoteType(ctx context.Context, modelName string) (bool, error)

	// AddNote adds one note and returns its id.
	AddNote(ctx context.Context, deck, modelName, text string, tags []string) (int64, error)
}

// runState is a step of the dispatch state machine.
type runState int

const (
	stateInit runState = iota
	stateConnected
	stateModelEnsured
	stateDispatching
	stateDone
	stateFailed
)

func (s runState) String() string {
	switch s {
	case stateInit:
		return "init"
	case stateConnected:
		return "connected"
	case stateModelEnsured:
		return "model_ensured"
	case stateDispatching:
		return "dispatching"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Engine turns submissions into notes.
//
// Description:
//
//	Engine owns the parser registry, the highlighter and the backend handle
//	for its lifetime; nothing is held in package-level state. GenerateCards
//	runs one submission end to end. Synthesize renders cards without
//	touching the backend, for previews.
//
// Thread Safety:
//
//	Safe for concurrent use. GenerateCards runs are serialised by a
//	weighted semaphore so note submissions never race at the backend.
//	Synthesize is not serialised.
type Engine struct {
	backend     Backend
	parsers     ParserLookup
	highlighter Highlighter
	opts        Options
	logger      *slog.Logger
	runs        *semaphore.Weighted
}

// NewEngine creates an Engine.
//
// Inputs:
//   - backend: Flashcard store. May be nil for Synthesize-only use.
//   - parsers: Grammar lookup. Must not be nil.
//   - highlighter: Colour tokens. May be nil; cards are then uncoloured.
//   - opts: Synthesis options; unusable fields fall back to defaults.
//   - logger: May be nil, in which case slog.Default is used.
//
// Outputs:
//   - *Engine: Ready for use.
func NewEngine(backend Backend, parsers ParserLookup, highlighter Highlighter, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		backend:     backend,
		parsers:     parsers,
		highlighter: highlighter,
		opts:        opts.normalized(),
		logger:      logger,
		runs:        semaphore.NewWeighted(1),
	}
}

// Options returns the engine's effective options.
func (e *Engine) Options() Options {
	return e.opts
}

// Synthesize renders the cards for a submission without dispatching them.
//
// Description:
//
//	Normalises newlines, parses, extracts candidates, highlights, batches and
//	renders. Parse problems (unknown language, oversized or invalid input,
//	syntax the grammar cannot recover) are logged and leave the candidate set
//	empty, so the source still yields one plain card. A failing highlighter
//	degrades to uncoloured text.
//
// Inputs:
//   - ctx: Cancellation for parsing and highlighting.
//   - sub: The submission. Deck and Tags are used for the header only.
//
// Outputs:
//   - []Card: At least one card.
//   - error: Non-nil only when ctx is done.
func (e *Engine) Synthesize(ctx context.Context, sub Submission) ([]Card, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}
	sub = e.withSubmissionDefaults(sub)
	source := normalizeNewlines(sub.Source)
	logger := e.logger.With(slog.String("language", sub.Language))

	tree := e.parse(ctx, source, sub.Language, logger)
	candidates := ExtractCandidates(tree)

	var tokens [][]ColorToken
	if e.highlighter != nil {
		grid, err := e.highlighter.Highlight(ctx, source, sub.Language)
		if err != nil {
			logger.Warn("highlighting failed, rendering uncoloured", slog.String("error", err.Error()))
		} else {
			tokens = grid
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("synthesize: %w", err)
	}

	doc := NewDocument(source, candidates, tokens, NewScopeResolver(tree, e.opts.BreadcrumbDepth), DocumentConfig{
		Header:       CardHeader{Title: sub.Title, Deck: sub.Deck, Tags: sub.Tags},
		ContextLines: e.opts.ContextLines,
	})
	if n := doc.RepairedLines(); n > 0 && tokens != nil {
		logger.Debug("replaced mismatched token rows", slog.Int("lines", n))
	}

	batches := BuildBatches(candidates, e.opts.MaxBlanksPerCard)
	cards := make([]Card, len(batches))
	for i, batch := range batches {
		cards[i] = doc.RenderCard(batch, len(batches))
	}

	logger.Debug("synthesized cards",
		slog.Int("candidates", len(candidates)),
		slog.Int("cards", len(cards)),
		slog.Int("lines", doc.LineCount()))
	return cards, nil
}

// parse returns the tree for source, or nil when no usable tree exists.
func (e *Engine) parse(ctx context.Context, source, language string, logger *slog.Logger) *ast.Tree {
	if e.parsers == nil {
		return nil
	}
	parser, err := e.parsers.Lookup(language)
	if err != nil {
		logger.Warn("no parser for language, cards will have no blanks", slog.String("error", err.Error()))
		return nil
	}
	tree, err := parser.Parse(ctx, source)
	if err != nil {
		logger.Warn("parse failed, cards will have no blanks", slog.String("error", err.Error()))
		return nil
	}
	if tree.HasErrors {
		logger.Debug("source parsed with recovered syntax errors")
	}
	return tree
}

func (e *Engine) withSubmissionDefaults(sub Submission) Submission {
	if sub.Language == "" {
		sub.Language = e.opts.Language
	}
	if sub.Deck == "" {
		sub.Deck = DefaultDeck
	}
	if len(sub.Tags) == 0 {
		sub.Tags = []string{DefaultTag}
	}
	return sub
}

// GenerateCards runs one submission against the backend.
//
// Description:
//
//	Walks Init → Connected → ModelEnsured → Dispatching → Done, or Failed.
//	The backend is probed before any parsing; when the probe fails the run
//	stops with ConnectivityMessage and no further backend call is made.
//	Deck and note type setup failures are logged and the run continues. Each
//	card is submitted in order; a failed submission is logged and skipped,
//	and AddedCount counts only accepted notes. Cancelling ctx stops the
//	dispatch before the next card and fails the run with ErrCanceled.
//
// Inputs:
//   - ctx: Bounds the whole run, including the wait for a concurrent run.
//   - sub: The submission.
//
// Outputs:
//   - Result: Always returned. Panics inside the run become
//     {Success: false}.
//
// Thread Safety:
//
//	Runs on one engine execute one at a time.
func (e *Engine) GenerateCards(ctx context.Context, sub Submission) (result Result) {
	runID := uuid.NewString()
	sub = e.withSubmissionDefaults(sub)
	logger := e.logger.With(slog.String("run_id", runID), slog.String("deck", sub.Deck))

	if e.backend == nil {
		return Result{Success: false, Message: ErrNoBackend.Error(), RunID: runID}
	}
	if err := e.runs.Acquire(ctx, 1); err != nil {
		logger.Warn("run abandoned while waiting for another run", slog.String("error", err.Error()))
		return Result{Success: false, Message: fmt.Errorf("%w: %v", ErrBusy, err).Error(), RunID: runID}
	}
	defer e.runs.Release(1)

	ctx, span := startRunSpan(ctx, runID, sub.Deck, len(sub.Source))
	defer span.End()

	start := time.Now()
	state := stateInit
	added, failed, blanks := 0, 0, 0

	transition := func(next runState) {
		logger.Debug("run state", slog.String("from", state.String()), slog.String("to", next.String()))
		state = next
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("run panicked", slog.Any("panic", r))
			span.SetStatus(codes.Error, "panic")
			state = stateFailed
			result = Result{Success: false, Message: fmt.Sprintf("internal error: %v", r), RunID: runID}
		}
		recordRunMetrics(ctx, state, time.Since(start), added, failed, blanks)
	}()

	version, err := e.backend.Version(ctx)
	if err != nil {
		transition(stateFailed)
		logger.Error(ConnectivityMessage, slog.String("error", err.Error()))
		span.SetStatus(codes.Error, "backend unreachable")
		return Result{Success: false, Message: ConnectivityMessage, RunID: runID}
	}
	transition(stateConnected)
	logger.Info("connected to AnkiConnect", slog.Int("version", version))

	if err := e.backend.CreateDeck(ctx, sub.Deck); err != nil {
		logger.Warn("create deck failed", slog.String("error", err.Error()))
	}
	if created, err := e.backend.EnsureNoteType(ctx, e.opts.ModelName); err != nil {
		logger.Warn("ensure note type failed", slog.String("model", e.opts.ModelName), slog.String("error", err.Error()))
	} else {
		logger.Info("note type ready", slog.String("model", e.opts.ModelName), slog.Bool("created", created))
	}
	transition(stateModelEnsured)

	cards, err := e.Synthesize(ctx, sub)
	if err != nil {
		transition(stateFailed)
		span.SetStatus(codes.Error, "synthesis canceled")
		return Result{Success: false, Message: err.Error(), RunID: runID}
	}
	for _, c := range cards {
		blanks += c.Blanks
	}

	transition(stateDispatching)
	for _, card := range cards {
		if err := ctx.Err(); err != nil {
			transition(stateFailed)
			logger.Warn("run canceled during dispatch",
				slog.Int("added", added),
				slog.Int("total", len(cards)),
				slog.String("error", err.Error()))
			span.SetStatus(codes.Error, "dispatch canceled")
			return Result{
				Success:    false,
				Message:    fmt.Errorf("%w after %d of %d cards: %v", ErrCanceled, added, len(cards), err).Error(),
				AddedCount: added,
				TotalCards: len(cards),
				RunID:      runID,
			}
		}
		id, err := e.backend.AddNote(ctx, sub.Deck, e.opts.ModelName, card.Text, sub.Tags)
		if err != nil {
			failed++
			logger.Warn("add note failed",
				slog.Int("batch", card.Index),
				slog.String("error", err.Error()))
			continue
		}
		added++
		logger.Debug("note added", slog.Int("batch", card.Index), slog.Int64("note_id", id))
	}
	transition(stateDone)

	span.SetAttributes(
		attribute.Int("synth.cards", len(cards)),
		attribute.Int("synth.added", added),
	)
	logger.Info("run complete",
		slog.Int("added", added),
		slog.Int("total", len(cards)),
		slog.Duration("elapsed", time.Since(start)))

	return Result{
		Success:    true,
		AddedCount: added,
		TotalCards: len(cards),
		RunID:      runID,
	}
}
