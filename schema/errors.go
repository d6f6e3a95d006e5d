// Copyright 2025 The Zocket Authors
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

package schema

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrValidation is a sentinel error for validation failures.
// Use errors.Is(err, ErrValidation) to check if an error is a validation error.
var ErrValidation = errors.New("validation")

// FieldError represents a single validation issue for a specific field.
// Multiple FieldError values are collected in an [Error].
type FieldError struct {
	Path    string         `json:"path"`           // JSON path (e.g. "items.2.price")
	Code    string         `json:"code"`           // Stable code (e.g. "tag.required", "schema.type")
	Message string         `json:"message"`        // Human-readable message
	Meta    map[string]any `json:"meta,omitempty"` // Additional metadata (tag, param, value, etc.)
}

// Error returns a formatted error message as "path: message" or just
// "message" if path is empty.
func (e FieldError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Unwrap returns [ErrValidation] for errors.Is/errors.As compatibility.
func (e FieldError) Unwrap() error {
	return ErrValidation
}

// Error represents validation issues for one or more fields. It implements
// error and can be used with errors.Is/errors.As. The Fields slice is the
// structured issues list carried to clients on handshake rejection and to
// logs on payload rejection.
//
//nolint:recvcheck // Error must use value receiver for error interface compatibility, mutating methods use pointer
type Error struct {
	Fields []FieldError `json:"errors"`
}

// Error returns a formatted error message.
func (v Error) Error() string {
	if len(v.Fields) == 0 {
		return ""
	}
	if len(v.Fields) == 1 {
		return v.Fields[0].Error()
	}

	msgs := make([]string, 0, len(v.Fields))
	for _, err := range v.Fields {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Unwrap returns [ErrValidation] for errors.Is/errors.As compatibility.
func (v Error) Unwrap() error {
	return ErrValidation
}

// Add appends a field error.
func (v *Error) Add(path, code, message string, meta map[string]any) {
	v.Fields = append(v.Fields, FieldError{Path: path, Code: code, Message: message, Meta: meta})
}

// Sort orders field errors by path, then code, for stable output.
func (v *Error) Sort() {
	sort.Slice(v.Fields, func(i, j int) bool {
		if v.Fields[i].Path != v.Fields[j].Path {
			return v.Fields[i].Path < v.Fields[j].Path
		}
		return v.Fields[i].Code < v.Fields[j].Code
	})
}

// AsError returns err's [*Error] if it carries one, or wraps any other error
// into a single-field Error so callers always see the structured form.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var verr *Error
	if errors.As(err, &verr) {
		return verr
	}
	return &Error{Fields: []FieldError{{Code: "validation_error", Message: err.Error()}}}
}
