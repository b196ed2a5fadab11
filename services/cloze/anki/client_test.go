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
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	Action  string
	Version int
	Params  map[string]any
}

// fakeAnki is a minimal AnkiConnect stand-in.
type fakeAnki struct {
	mu      sync.Mutex
	calls   []recordedCall
	models  []string
	failing map[string]string
}

func (f *fakeAnki) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req recordedCall
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.calls = append(f.calls, req)
		msg, fail := f.failing[req.Action]
		models := f.models
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if fail {
			_ = json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": msg})
			return
		}
		var result any
		switch req.Action {
		case "version":
			result = 6
		case "createDeck":
			result = 1700000000000
		case "modelNames":
			result = models
		case "addNote":
			result = 1500000000001
		default:
			result = nil
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result, "error": nil})
	}
}

func (f *fakeAnki) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Action
	}
	return out
}

func newFake(t *testing.T, fake *fakeAnki) *Client {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, WithRequestDelay(0))
}

func TestClient_Version(t *testing.T) {
	fake := &fakeAnki{}
	client := newFake(t, fake)

	v, err := client.Version(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, APIVersion, fake.calls[0].Version)
	assert.Nil(t, fake.calls[0].Params)
}

func TestClient_AddNote_Payload(t *testing.T) {
	fake := &fakeAnki{}
	client := newFake(t, fake)

	id, err := client.AddNote(context.Background(), "dev", "anki-cloze-code", "<div>{{c1::x}}</div>", []string{"ts"})
	require.NoError(t, err)
	assert.Equal(t, int64(1500000000001), id)

	note := fake.calls[0].Params["note"].(map[string]any)
	assert.Equal(t, "dev", note["deckName"])
	assert.Equal(t, "anki-cloze-code", note["modelName"])
	assert.Equal(t, map[string]any{"Text": "<div>{{c1::x}}</div>"}, note["fields"])
	assert.Equal(t, map[string]any{"allowDuplicate": true}, note["options"])
	assert.Equal(t, []any{"ts"}, note["tags"])
}

func TestClient_ActionError(t *testing.T) {
	fake := &fakeAnki{failing: map[string]string{"addNote": "cannot create note because it is empty"}}
	client := newFake(t, fake)

	_, err := client.AddNote(context.Background(), "dev", "m", "", nil)
	require.Error(t, err)

	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, "addNote", callErr.Action)
	assert.Equal(t, KindAction, callErr.Kind)
	assert.Equal(t, "cannot create note because it is empty", callErr.Message)
	assert.ErrorIs(t, err, ErrBackend)
	assert.False(t, IsUnreachable(err))
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(url, WithRequestDelay(0), WithTimeout(2*time.Second))
	_, err := client.Version(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnreachable(err))
	assert.NotErrorIs(t, err, ErrBackend)
}

func TestClient_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	err := NewClient(srv.URL, WithRequestDelay(0)).CreateDeck(context.Background(), "dev")
	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, KindStatus, callErr.Kind)
	assert.Contains(t, callErr.Message, "500")
}

func TestClient_NullResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result": null, "error": null}`))
	}))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, WithRequestDelay(0))

	_, err := client.AddNote(context.Background(), "dev", "m", "x", nil)
	var callErr *CallError
	require.True(t, errors.As(err, &callErr))
	assert.Equal(t, KindEmptyResult, callErr.Kind)

	// Actions without a result value accept null.
	assert.NoError(t, client.UpdateModelStyling(context.Background(), "m", "css"))
}

func TestClient_EnsureNoteType_Creates(t *testing.T) {
	fake := &fakeAnki{models: []string{"Basic", "Cloze"}}
	client := newFake(t, fake)

	created, err := client.EnsureNoteType(context.Background(), "anki-cloze-code")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"modelNames", "createModel"}, fake.actions())

	params := fake.calls[1].Params
	assert.Equal(t, "anki-cloze-code", params["modelName"])
	assert.Equal(t, []any{"Text"}, params["inOrderFields"])
	assert.Equal(t, true, params["isCloze"])
	assert.Equal(t, ClozeCSS, params["css"])
	templates := params["cardTemplates"].([]any)
	require.Len(t, templates, 1)
	assert.Equal(t, map[string]any{"Name": "Cloze", "Front": "{{cloze:Text}}", "Back": "{{cloze:Text}}"}, templates[0])
}

func TestClient_EnsureNoteType_Overwrites(t *testing.T) {
	fake := &fakeAnki{models: []string{"anki-cloze-code"}}
	client := newFake(t, fake)

	created, err := client.EnsureNoteType(context.Background(), "anki-cloze-code")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, []string{"modelNames", "updateModelStyling", "updateModelTemplates"}, fake.actions())

	styling := fake.calls[1].Params["model"].(map[string]any)
	assert.Equal(t, "anki-cloze-code", styling["name"])
	assert.Equal(t, ClozeCSS, styling["css"])

	templates := fake.calls[2].Params["model"].(map[string]any)["templates"].(map[string]any)
	assert.Equal(t, map[string]any{"Front": "{{cloze:Text}}", "Back": "{{cloze:Text}}"}, templates["Cloze"])
}

func TestClient_EnsureNoteType_ListFails(t *testing.T) {
	fake := &fakeAnki{failing: map[string]string{"modelNames": "collection closed"}}
	client := newFake(t, fake)

	_, err := client.EnsureNoteType(context.Background(), "anki-cloze-code")
	assert.ErrorIs(t, err, ErrBackend)
	assert.Equal(t, []string{"modelNames"}, fake.actions())
}

func TestClient_RequestDelay(t *testing.T) {
	fake := &fakeAnki{}
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	client := NewClient(srv.URL, WithRequestDelay(50*time.Millisecond))

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := client.Version(context.Background())
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestClient_CanceledContext(t *testing.T) {
	client := newFake(t, &fakeAnki{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Version(ctx)
	assert.True(t, IsUnreachable(err))
}

func TestCallError_Format(t *testing.T) {
	err := &CallError{Action: "version", Kind: KindTransport, Message: "http request", Cause: errors.New("refused")}
	assert.Equal(t, "ankiconnect version (transport): http request: refused", err.Error())
	assert.Equal(t, "empty_result", KindEmptyResult.String())
}
