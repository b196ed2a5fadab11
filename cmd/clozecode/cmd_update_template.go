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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/clozecode/services/cloze/anki"
	"github.com/AleutianAI/clozecode/services/cloze/synth"
)

func newUpdateTemplateCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "update-template",
		Short: "Create or overwrite the cloze note type's template and styling",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := root.newAppFromCmd(cmd, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			if _, err := a.client.Version(ctx); err != nil {
				if anki.IsUnreachable(err) {
					a.printer.Error(synth.ConnectivityMessage)
				} else {
					a.printer.Error(err.Error())
				}
				return err
			}
			model := a.cfg.Anki.ModelName
			created, err := a.client.EnsureNoteType(ctx, model)
			if err != nil {
				a.printer.Error(err.Error())
				return err
			}
			verb := "updated"
			if created {
				verb = "created"
			}
			a.printer.Success(fmt.Sprintf("note type %q %s", model, verb))
			return nil
		},
	}
}
