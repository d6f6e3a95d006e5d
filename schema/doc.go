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

// Package schema normalises payload validation behind a single contract.
//
// A [Schema] takes a raw value (typically a json.RawMessage decoded from the
// wire, or the merged handshake bag) and returns either a coerced value or a
// structured list of issues. The server core never looks inside a payload
// itself; every inbound payload and every handshake passes through a Schema.
//
// Four adapters are provided:
//
//   - [Any] accepts every payload and decodes it to a generic value.
//   - [Struct] decodes into a Go struct and enforces go-playground/validator
//     struct tags.
//   - [JSONSchema] validates against a compiled JSON Schema document.
//   - [Func] wraps an arbitrary validation function.
//
// Validation failures are reported as [*Error], which unwraps to the
// [ErrValidation] sentinel:
//
//	_, err := s.Validate(ctx, raw)
//	if errors.Is(err, schema.ErrValidation) {
//	    var verr *schema.Error
//	    errors.As(err, &verr)
//	    for _, f := range verr.Fields {
//	        fmt.Println(f.Path, f.Message)
//	    }
//	}
package schema
