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
	"context"
	"encoding/json"
)

// Schema validates a raw value and returns the coerced form.
//
// The raw value is whatever the caller holds: a json.RawMessage straight off
// the wire, a decoded generic value, a map of handshake fields, or a Go value
// produced by a handler. Adapters must accept all of these shapes.
//
// On success the returned value is the coerced payload handed to handlers
// (or encoded onto the wire for outgoing events). On failure the error is an
// [*Error] carrying structured issues; it is never fatal to the server.
//
// Implementations must be safe for concurrent use: a single Schema instance
// validates payloads from every connection.
type Schema interface {
	Validate(ctx context.Context, raw any) (any, error)
}

// anySchema accepts every payload.
type anySchema struct{}

// Any returns a Schema that accepts every payload. Raw JSON is decoded into
// a generic value; anything else passes through unchanged.
//
// Use it for procedures whose payload shape is intentionally open, such as
// debug or relay routes.
func Any() Schema {
	return anySchema{}
}

func (anySchema) Validate(_ context.Context, raw any) (any, error) {
	data, err := decodeRaw(raw)
	if err != nil {
		return nil, &Error{Fields: []FieldError{{Code: "json_error", Message: err.Error()}}}
	}
	return data, nil
}

// Func wraps a validation function as a [Schema].
//
// Example:
//
//	nonEmpty := schema.Func(func(ctx context.Context, raw any) (any, error) {
//	    s, ok := raw.(string)
//	    if !ok || s == "" {
//	        return nil, &schema.Error{Fields: []schema.FieldError{
//	            {Code: "custom", Message: "must be a non-empty string"},
//	        }}
//	    }
//	    return s, nil
//	})
func Func(fn func(ctx context.Context, raw any) (any, error)) Schema {
	return funcSchema(fn)
}

type funcSchema func(ctx context.Context, raw any) (any, error)

func (f funcSchema) Validate(ctx context.Context, raw any) (any, error) {
	v, err := f(ctx, raw)
	if err != nil {
		return nil, AsError(err)
	}
	return v, nil
}

// decodeRaw normalises the raw input. Wire bytes are decoded as JSON;
// already-decoded values pass through.
func decodeRaw(raw any) (any, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(t) == 0 {
			return nil, nil
		}
		var data any
		if err := json.Unmarshal(t, &data); err != nil {
			return nil, err
		}
		return data, nil
	case []byte:
		if len(t) == 0 {
			return nil, nil
		}
		var data any
		if err := json.Unmarshal(t, &data); err != nil {
			return nil, err
		}
		return data, nil
	default:
		return raw, nil
	}
}

// rawBytes returns the JSON encoding of raw, reusing wire bytes when the
// caller already holds them.
func rawBytes(raw any) ([]byte, error) {
	switch t := raw.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return t, nil
	case []byte:
		return t, nil
	default:
		return json.Marshal(raw)
	}
}
