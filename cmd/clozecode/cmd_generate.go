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
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/clozecode/cmd/clozecode/config"
	"github.com/AleutianAI/clozecode/services/cloze/datatypes"
	"github.com/AleutianAI/clozecode/services/cloze/synth"
	"github.com/AleutianAI/clozecode/services/cloze/watch"
)

// ErrRunFailed is returned when the engine reports an unsuccessful run.
var ErrRunFailed = errors.New("card generation failed")

type generateOptions struct {
	dryRun          bool
	watch           bool
	deck            string
	tags            string
	title           string
	language        string
	maxBlanks       int
	contextLines    int
	breadcrumbDepth int
	debounce        time.Duration
}

func newGenerateCmd(root *rootOptions) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate <file>",
		Short: "Create cloze cards from a source file",
		Example: `  clozecode generate src/user_service.ts
  clozecode generate app.tsx --deck frontend --tags react,hooks
  clozecode generate main.ts --dry-run --context-lines 3
  clozecode generate main.ts --watch`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := root.newAppFromCmd(cmd, func(cfg *config.ClozecodeConfig) {
				opts.apply(cmd, cfg)
			})
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := args[0]
			if !opts.watch {
				return runGenerate(ctx, a, opts, path)
			}

			if err := runGenerate(ctx, a, opts, path); err != nil && !errors.Is(err, ErrRunFailed) {
				return err
			}
			w, err := watch.NewFileWatcher(path, func(ctx context.Context, path string) {
				if err := runGenerate(ctx, a, opts, path); err != nil {
					a.printer.Error(err.Error())
				}
			}, watch.Options{Debounce: opts.debounce, Logger: a.logger.Slog()})
			if err != nil {
				return err
			}
			a.printer.Info(fmt.Sprintf("watching %s, Ctrl-C to stop", w.Path()))
			return w.Run(ctx)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.dryRun, "dry-run", false, "print the rendered cards instead of adding them")
	f.BoolVar(&opts.watch, "watch", false, "regenerate whenever the file changes")
	f.StringVar(&opts.deck, "deck", "", "destination deck (default from config)")
	f.StringVar(&opts.tags, "tags", "", "comma-separated note tags (default from config)")
	f.StringVar(&opts.title, "title", "", "card title (default: file name)")
	f.StringVar(&opts.language, "language", "", "grammar: typescript, tsx or javascript (default: by extension)")
	f.IntVar(&opts.maxBlanks, "max-blanks", 0, "maximum blanks per card")
	f.IntVar(&opts.contextLines, "context-lines", 0, "lines of context around blanks, -1 for the whole file")
	f.IntVar(&opts.breadcrumbDepth, "breadcrumb-depth", 0, "innermost scopes shown in the header, 0 for all")
	f.DurationVar(&opts.debounce, "debounce", watch.DefaultDebounce, "quiet period before regenerating in --watch mode")
	return cmd
}

// apply overrides config values with flags the user actually set.
func (o *generateOptions) apply(cmd *cobra.Command, cfg *config.ClozecodeConfig) {
	f := cmd.Flags()
	if f.Changed("deck") {
		cfg.Cards.Deck = o.deck
	}
	if f.Changed("tags") {
		cfg.Cards.Tags = datatypes.SplitTags(o.tags)
	}
	if f.Changed("max-blanks") {
		cfg.Cards.MaxBlanksPerCard = o.maxBlanks
	}
	if f.Changed("context-lines") {
		cfg.Cards.ContextLines = o.contextLines
	}
	if f.Changed("breadcrumb-depth") {
		cfg.Cards.BreadcrumbDepth = o.breadcrumbDepth
	}
}

func runGenerate(ctx context.Context, a *app, opts *generateOptions, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	title := opts.title
	if title == "" {
		title = filepath.Base(path)
	}
	sub := synth.Submission{
		Source:   string(data),
		Title:    title,
		Deck:     a.cfg.Cards.Deck,
		Tags:     a.cfg.Cards.Tags,
		Language: a.languageFor(opts.language, path),
	}

	if opts.dryRun {
		cards, err := a.engine.Synthesize(ctx, sub)
		if err != nil {
			return err
		}
		for _, card := range cards {
			a.printer.Box(fmt.Sprintf("Card %d/%d (%d blanks)", card.Index+1, card.Total, card.Blanks), card.Text)
		}
		return nil
	}

	a.printer.Title("clozecode " + strings.TrimSpace(title))
	result := a.engine.GenerateCards(ctx, sub)
	if !result.Success {
		a.printer.Error(result.Message)
		return fmt.Errorf("%w: %s", ErrRunFailed, result.Message)
	}
	a.printer.RunSummary(result.AddedCount, result.TotalCards, sub.Deck, result.RunID)
	return nil
}
