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

const (
	// DefaultMaxBlanksPerCard bounds the active blanks on one card.
	DefaultMaxBlanksPerCard = 20

	// FullFileContext renders every source line on every card.
	FullFileContext = -1

	// DefaultModelName is the note type the engine creates and fills.
	DefaultModelName = "anki-cloze-code"

	// DefaultLanguage is used when a submission names no language.
	DefaultLanguage = "typescript"

	// DefaultDeck is used when a submission names no deck.
	DefaultDeck = "dev"

	// DefaultTag is attached when a submission carries no tags.
	DefaultTag = "anki-cloze-code"
)

// Options tunes card synthesis.
//
// Start from DefaultOptions: the zero value of ContextLines means a window
// of zero lines, not the full file.
type Options struct {
	// MaxBlanksPerCard is the batch size. Values below 1 become the default.
	MaxBlanksPerCard int

	// ContextLines is FullFileContext (-1) to render the whole file, or the
	// number of lines kept above and below the batch's blanks.
	ContextLines int

	// BreadcrumbDepth keeps the innermost N scope labels. 0 is unlimited.
	BreadcrumbDepth int

	// ModelName is the note type used for every note.
	ModelName string

	// Language picks the grammar when a submission names none.
	Language string
}

// DefaultOptions returns the options used by the CLI and server.
func DefaultOptions() Options {
	return Options{
		MaxBlanksPerCard: DefaultMaxBlanksPerCard,
		ContextLines:     FullFileContext,
		BreadcrumbDepth:  0,
		ModelName:        DefaultModelName,
		Language:         DefaultLanguage,
	}
}

// normalized fills unusable fields with defaults.
func (o Options) normalized() Options {
	if o.MaxBlanksPerCard < 1 {
		o.MaxBlanksPerCard = DefaultMaxBlanksPerCard
	}
	if o.ContextLines < FullFileContext {
		o.ContextLines = FullFileContext
	}
	if o.BreadcrumbDepth < 0 {
		o.BreadcrumbDepth = 0
	}
	if o.ModelName == "" {
		o.ModelName = DefaultModelName
	}
	if o.Language == "" {
		o.Language = DefaultLanguage
	}
	return o
}
