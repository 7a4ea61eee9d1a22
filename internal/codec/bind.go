/*
 * Copyright 2022 RapidLoop, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package codec translates between arbitrary JSON values and pgx's typed
// bind/decode protocol: Bind turns a decoded JSON value into something
// pgx.Query will accept positionally, DecodeRow turns a pgx.Rows result into
// an order-preserving JSON object per row.
package codec

import (
	"encoding/json"
	"fmt"
)

// MissingParameterError is returned by Bind when a name required by an
// endpoint's param_order has no corresponding entry in the supplied value
// map.
type MissingParameterError struct {
	Name string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing parameter %q", e.Name)
}

// Bind assembles a positional argument list for order, a name->JSON value
// map (string, bool, json.Number, nil, map[string]any, []any, or missing).
// Every name in order must be present in values; there is no notion of an
// optional SQL placeholder.
func Bind(order []string, values map[string]any) ([]any, error) {
	args := make([]any, 0, len(order))
	for _, name := range order {
		v, ok := values[name]
		if !ok {
			return nil, &MissingParameterError{Name: name}
		}
		bv, err := BindValue(v)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		args = append(args, bv)
	}
	return args, nil
}

// BindValue maps one decoded JSON value to a pgx-compatible bind argument,
// per the type-dispatch table: string -> text, bool -> bool, integral
// number -> int64, other number -> float64, null -> nullable text, object
// or array -> json.RawMessage (the driver's native JSON bind).
func BindValue(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return (*string)(nil), nil
	case string:
		return t, nil
	case bool:
		return t, nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid json number %q", t.String())
		}
		return f, nil
	case float64: // already-decoded number (e.g. assembled in-process, not via json.Number)
		if i := int64(t); float64(i) == t {
			return i, nil
		}
		return t, nil
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return json.RawMessage(b), nil
	case json.RawMessage:
		return t, nil
	default:
		return nil, fmt.Errorf("unsupported json value type %T", v)
	}
}
