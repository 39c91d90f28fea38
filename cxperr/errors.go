// Copyright 2019 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cxperr defines CXP's error taxonomy. Every fallible operation in
// this module returns one of these kinds, wrapped with the offending path
// or member name; the core never panics or uses exceptions for control flow.
package cxperr

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation failed.
type Kind int

const (
	// IO is an underlying filesystem failure: open, read, write, rename.
	IO Kind = iota
	// FormatVersion is an archive whose major version the reader refuses.
	FormatVersion
	// Corrupt means a member is missing, unreadable, decompresses to the
	// wrong length, or deserializes with a schema violation.
	Corrupt
	// Serialization is a failure to encode a Manifest/FileMap/
	// ExtensionManifest during build.
	Serialization
	// Compression is a failure to produce a Zstandard frame.
	Compression
	// Decompression is an invalid or truncated Zstandard frame.
	Decompression
	// NotFound is a requested logical file or extension key not present.
	NotFound
	// InvalidInput is an unusable path, duplicate namespace, unsafe
	// extension key, or non-positive limit supplied by the caller.
	InvalidInput
	// Cancelled means cooperative cancellation fired.
	Cancelled
)

func (k Kind) String() string {
	switch k {
	case IO:
		return "IO"
	case FormatVersion:
		return "FormatVersion"
	case Corrupt:
		return "Corrupt"
	case Serialization:
		return "Serialization"
	case Compression:
		return "Compression"
	case Decompression:
		return "Decompression"
	case NotFound:
		return "NotFound"
	case InvalidInput:
		return "InvalidInput"
	case Cancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// Error is CXP's single tagged error type: a Kind, the path or member the
// failure concerns, and the underlying cause.
type Error struct {
	kind  Kind
	path  string
	cause error
}

// New builds an Error. path may be empty when no single path or member is
// implicated. cause may be nil.
func New(kind Kind, path string, cause error) *Error {
	return &Error{kind: kind, path: path, cause: cause}
}

// Kind reports the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// Path reports the offending path or container member, if any.
func (e *Error) Path() string {
	return e.path
}

// Unwrap exposes the underlying cause for errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.cause
}

func (e *Error) Error() string {
	if e.path == "" {
		if e.cause == nil {
			return e.kind.String()
		}
		return fmt.Sprintf("%s: %s", e.kind, e.cause)
	}
	if e.cause == nil {
		return fmt.Sprintf("%s: %s", e.kind, e.path)
	}
	return fmt.Sprintf("%s: %s: %s", e.kind, e.path, e.cause)
}

// Is reports whether err (or anything it wraps) is a *Error of kind.
func Is(err error, kind Kind) bool {
	var ce *Error
	if !errors.As(err, &ce) {
		return false
	}
	return ce.kind == kind
}
