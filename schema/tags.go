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
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// tagValidator is the shared go-playground validator instance. Field names in
// issues follow the json tag, not the Go field name, so wire-level paths line
// up with what clients sent.
var (
	tagValidator     *validator.Validate
	tagValidatorOnce sync.Once
)

func getTagValidator() *validator.Validate {
	tagValidatorOnce.Do(func() {
		tagValidator = validator.New(validator.WithRequiredStructEnabled())
		tagValidator.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
	})
	return tagValidator
}

// Struct returns a [Schema] that decodes the payload into T and enforces its
// `validate` struct tags via go-playground/validator.
//
// Coercion: the raw payload is JSON-decoded into T (values that are not wire
// bytes are round-tripped through JSON first, which is how handshake maps and
// handler return values are coerced). The validated value handed to handlers
// is a T, so handlers type-assert once and never touch raw JSON:
//
//	type PingInput struct {
//	    Message string `json:"message" validate:"required"`
//	}
//
//	r.In("ping", schema.Struct[PingInput](), func(c *zocket.Context) (any, error) {
//	    in := c.Input().(PingInput)
//	    return "pong: " + in.Message, nil
//	})
func Struct[T any]() Schema {
	return structSchema[T]{}
}

type structSchema[T any] struct{}

func (structSchema[T]) Validate(ctx context.Context, raw any) (any, error) {
	// Fast path: the value is already a T (server-side emits).
	out, ok := raw.(T)
	if !ok {
		data, err := rawBytes(raw)
		if err != nil {
			return nil, &Error{Fields: []FieldError{{Code: "json_error", Message: err.Error()}}}
		}
		if data == nil {
			data = []byte("null")
		}
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, &Error{Fields: []FieldError{{Code: "json_error", Message: err.Error()}}}
		}
	}

	if err := getTagValidator().StructCtx(ctx, &out); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return nil, formatTagErrors(verrs)
		}
		// InvalidValidationError: T is not a struct. Nothing to enforce.
		return out, nil
	}
	return out, nil
}

// formatTagErrors converts go-playground validation errors into an [*Error]
// with stable "tag.<name>" codes and json-tag field paths.
func formatTagErrors(errs validator.ValidationErrors) error {
	var result Error
	for _, e := range errs {
		// Namespace is "<root>.<field>...", drop the root struct segment.
		path := e.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		result.Add(path, "tag."+e.Tag(), tagErrorMessage(e), map[string]any{
			"tag":   e.Tag(),
			"param": e.Param(),
		})
	}
	result.Sort()
	return &result
}

// tagErrorMessage returns a human-readable message for a tag error.
func tagErrorMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be a valid URL"
	case "min":
		if e.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", e.Param())
		}
		return fmt.Sprintf("must be at least %s", e.Param())
	case "max":
		if e.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", e.Param())
		}
		return fmt.Sprintf("must be at most %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	default:
		return fmt.Sprintf("failed validation (%s)", e.Tag())
	}
}
