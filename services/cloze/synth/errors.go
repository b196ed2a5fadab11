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

import "errors"

// ConnectivityMessage is reported when the backend probe fails.
const ConnectivityMessage = "Could not connect to AnkiConnect. Make sure Anki is running and AnkiConnect is installed."

var (
	// ErrBusy indicates the context ended while waiting for another run on
	// the same engine to finish.
	ErrBusy = errors.New("engine busy")

	// ErrNoBackend indicates GenerateCards was called on an engine built
	// without a backend.
	ErrNoBackend = errors.New("no backend configured")

	// ErrCanceled indicates the context ended while cards were being
	// dispatched. Cards already added stay in the deck.
	ErrCanceled = errors.New("run canceled")
)
