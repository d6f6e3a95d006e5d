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
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// JSONSchema returns a [Schema] that validates payloads against a JSON Schema
// document. The schema is compiled eagerly; an invalid document panics, which
// surfaces misconfiguration at router declaration time rather than on the
// first frame.
//
// Example:
//
//	msg := schema.JSONSchema("chat-message", `{
//	    "type": "object",
//	    "properties": {
//	        "text": {"type": "string", "minLength": 1}
//	    },
//	    "required": ["text"]
//	}`)
func JSONSchema(id, schemaJSON string) Schema {
	sch, err := compileSchema(id, schemaJSON)
	if err != nil {
		panic(fmt.Sprintf("schema.JSONSchema(%q): %v", id, err))
	}
	return &jsonSchema{compiled: sch}
}

type jsonSchema struct {
	compiled *jsonschema.Schema
}

func (s *jsonSchema) Validate(_ context.Context, raw any) (any, error) {
	data, err := decodeRaw(raw)
	if err != nil {
		return nil, &Error{Fields: []FieldError{{Code: "json_error", Message: err.Error()}}}
	}

	// The validator operates on generic decoded values; Go structs reaching
	// this point (server-side emits) are round-tripped through JSON first.
	if !isGeneric(data) {
		b, err := json.Marshal(data)
		if err != nil {
			return nil, &Error{Fields: []FieldError{{Code: "json_error", Message: err.Error()}}}
		}
		if err := json.Unmarshal(b, &data); err != nil {
			return nil, &Error{Fields: []FieldError{{Code: "json_error", Message: err.Error()}}}
		}
	}

	if err := s.compiled.Validate(data); err != nil {
		if verr, ok := err.(*jsonschema.ValidationError); ok {
			return nil, formatSchemaErrors(verr)
		}
		return nil, &Error{Fields: []FieldError{{Code: "schema_error", Message: err.Error()}}}
	}
	return data, nil
}

// isGeneric reports whether v is a value shape produced by encoding/json.
func isGeneric(v any) bool {
	switch v.(type) {
	case nil, bool, float64, string, []any, map[string]any, json.Number:
		return true
	default:
		return false
	}
}

// compileSchema compiles a JSON Schema from its JSON source.
func compileSchema(id, schemaJSON string) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat()
	compiler.AssertContent()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("invalid schema JSON: %w", err)
	}

	url := id
	if url == "" {
		url = "schema.json"
	}
	if err := compiler.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	sch, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return sch, nil
}

// formatSchemaErrors flattens the structured ValidationError tree into an
// [*Error] with stable "schema.<kind>" codes.
func formatSchemaErrors(verr *jsonschema.ValidationError) error {
	var result Error
	collectSchemaErrors(verr, &result)
	result.Sort()
	return &result
}

func collectSchemaErrors(verr *jsonschema.ValidationError, result *Error) {
	if verr == nil {
		return
	}

	if len(verr.Causes) == 0 {
		path := strings.Join(verr.InstanceLocation, ".")
		kind := fmt.Sprintf("%v", verr.ErrorKind)
		result.Add(path, "schema."+kind, verr.Error(), map[string]any{
			"kind":       kind,
			"schema_url": verr.SchemaURL,
		})
	}
	for _, cause := range verr.Causes {
		collectSchemaErrors(cause, result)
	}
}
