// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package anki

import (
	"context"
	"log/slog"
	"slices"
)

// ClozeCSS is the note type styling. It is rewritten on every run.
const ClozeCSS = `
.card {
 font-family: arial;
 font-size: 20px;
 text-align: center;
 color: black;
 background-color: white;
}

.cloze {
 font-weight: bold;
 color: blue;
}
.nightMode .cloze {
 color: lightblue;
}
`

// TextField is the single field every note fills.
const TextField = "Text"

// CardTemplate is one card template of a note type.
type CardTemplate struct {
	Name  string `json:"Name"`
	Front string `json:"Front"`
	Back  string `json:"Back"`
}

// NoteType is the definition sent with createModel.
type NoteType struct {
	Name      string
	Fields    []string
	CSS       string
	IsCloze   bool
	Templates []CardTemplate
}

// ClozeNoteType returns the cloze note type with the given name.
func ClozeNoteType(name string) NoteType {
	return NoteType{
		Name:    name,
		Fields:  []string{TextField},
		CSS:     ClozeCSS,
		IsCloze: true,
		Templates: []CardTemplate{{
			Name:  "Cloze",
			Front: "{{cloze:" + TextField + "}}",
			Back:  "{{cloze:" + TextField + "}}",
		}},
	}
}

// EnsureNoteType makes the cloze note type match ClozeNoteType.
//
// Description:
//
//	Lists the existing note types. When modelName is missing it is created.
//	When present, its styling and templates are overwritten; the template is
//	owned by this tool and local edits are not preserved.
//
// Inputs:
//   - ctx: Bounds every call.
//   - modelName: Note type name.
//
// Outputs:
//   - bool: True when the note type was created by this call.
//   - error: The first failed call, as a *CallError.
func (c *Client) EnsureNoteType(ctx context.Context, modelName string) (bool, error) {
	nt := ClozeNoteType(modelName)

	names, err := c.ModelNames(ctx)
	if err != nil {
		return false, err
	}

	if !slices.Contains(names, modelName) {
		c.logger.Info("note type not found, creating", slog.String("model", modelName))
		if err := c.CreateModel(ctx, nt); err != nil {
			return false, err
		}
		return true, nil
	}

	c.logger.Debug("note type exists, overwriting styling and templates", slog.String("model", modelName))
	if err := c.UpdateModelStyling(ctx, modelName, nt.CSS); err != nil {
		return false, err
	}
	if err := c.UpdateModelTemplates(ctx, modelName, nt.Templates); err != nil {
		return false, err
	}
	return false, nil
}
