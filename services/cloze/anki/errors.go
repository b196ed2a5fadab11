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
	"errors"
	"fmt"
)

var (
	// ErrUnreachable indicates AnkiConnect could not be reached at all.
	ErrUnreachable = errors.New("ankiconnect unreachable")

	// ErrBackend indicates AnkiConnect answered but the action failed.
	ErrBackend = errors.New("ankiconnect action failed")
)

// ErrorKind classifies a failed call.
type ErrorKind int

const (
	// KindTransport covers connection failures and timeouts.
	KindTransport ErrorKind = iota

	// KindStatus is a non-200 HTTP response.
	KindStatus

	// KindDecode is a response body that is not an AnkiConnect envelope.
	KindDecode

	// KindAction is a non-null "error" field in the envelope.
	KindAction

	// KindEmptyResult is a null "result" where a value was required.
	KindEmptyResult
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	case KindAction:
		return "action"
	case KindEmptyResult:
		return "empty_result"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// CallError describes one failed AnkiConnect action.
//
// Transport failures match ErrUnreachable with errors.Is; every other kind
// matches ErrBackend.
type CallError struct {
	// Action is the AnkiConnect action name, e.g. "addNote".
	Action string

	// Kind classifies the failure.
	Kind ErrorKind

	// Message is the backend's error text or a local description.
	Message string

	// Cause is the underlying error, may be nil.
	Cause error
}

func (e *CallError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("ankiconnect %s (%s): %s: %v", e.Action, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("ankiconnect %s (%s): %s", e.Action, e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// Is maps the error kind onto the package sentinels.
func (e *CallError) Is(target error) bool {
	switch target {
	case ErrUnreachable:
		return e.Kind == KindTransport
	case ErrBackend:
		return e.Kind != KindTransport
	}
	return false
}

// IsUnreachable reports whether err is a transport failure.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUnreachable)
}
