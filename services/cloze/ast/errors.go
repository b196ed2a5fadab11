// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"errors"
	"fmt"
)

// Sentinel errors for parse failures. Check with errors.Is.
var (
	// ErrUnsupportedLanguage indicates that no parser is registered for the
	// requested language or file extension.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrInvalidContent indicates the source is not valid UTF-8.
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates the source exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrParseFailed indicates tree-sitter produced no usable tree.
	ErrParseFailed = errors.New("parse failed")
)

// ParseError wraps a parse failure with the language it happened in.
//
// Example:
//
//	tree, err := parser.Parse(ctx, src)
//	var perr *ParseError
//	if errors.As(err, &perr) {
//	    log.Printf("%s parse failed: %v", perr.Language, perr.Cause)
//	}
type ParseError struct {
	// Language is the grammar that was in use.
	Language string

	// Message describes the failure.
	Message string

	// Cause is the underlying error, may be nil.
	Cause error
}

// Error formats the error as "<language>: <message>".
func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Language, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Language, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// newParseError builds a ParseError wrapping cause.
func newParseError(language, message string, cause error) *ParseError {
	return &ParseError{Language: language, Message: message, Cause: cause}
}

// IsUnsupportedLanguage reports whether err is or wraps ErrUnsupportedLanguage.
func IsUnsupportedLanguage(err error) bool {
	return errors.Is(err, ErrUnsupportedLanguage)
}

// IsParseError reports whether err is or wraps a *ParseError.
func IsParseError(err error) bool {
	var perr *ParseError
	return errors.As(err, &perr)
}
