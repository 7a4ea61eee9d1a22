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

// Package decl parses the YAML declaration embedded in an endpoint's
// leading "/* ... */" preamble. Both the OpenAPI synthesizer and the
// endpoint handler read this shape, so the parsing lives in one place.
package decl

import "github.com/goccy/go-yaml"

// Field describes one entry in a response or request body schema, or (when
// nested) one property of an "object" field.
type Field struct {
	Field       string   `yaml:"field"`
	Type        string   `yaml:"type"`
	Description string   `yaml:"description"`
	Optional    bool     `yaml:"optional"`
	Enum        []string `yaml:"enum"`
	Fields      []Field  `yaml:"fields"`
	Items       *Field   `yaml:"items"`
}

// QueryParam describes one entry in allowlist.query.
type QueryParam struct {
	Field       string `yaml:"field"`
	Description string `yaml:"description"`
}

// Allowlist holds the GET query parameters and POST body fields a
// declaration exposes to OpenAPI.
type Allowlist struct {
	Query []QueryParam `yaml:"query"`
	Body  []Field      `yaml:"body"`
}

// Response holds the response schema fields for an endpoint.
type Response struct {
	Fields []Field `yaml:"fields"`

	// Format is not part of the original declaration shape; it is a local
	// addition read by the endpoint handler to pick between a JSON array
	// (default) and CSV response encoding. Left empty ("") it means "json".
	Format string `yaml:"format"`
}

// Declaration is the parsed form of an endpoint's YAML preamble.
type Declaration struct {
	Description string     `yaml:"description"`
	Response    Response   `yaml:"response"`
	Allowlist   Allowlist  `yaml:"allowlist"`

	// Cache is a local addition: when > 0 and the endpoint is a GET, the
	// handler may serve repeated identical requests from an in-process
	// cache for up to this many seconds. Not part of the upstream shape.
	Cache float64 `yaml:"cache"`
}

type wrapper struct {
	Declaration Declaration `yaml:"declaration"`
}

// Parse decodes a preamble's YAML body. An empty or whitespace-only text
// yields a zero-value Declaration and no error: the preamble is optional.
func Parse(text string) (Declaration, error) {
	var w wrapper
	if err := yaml.Unmarshal([]byte(text), &w); err != nil {
		return Declaration{}, err
	}
	return w.Declaration, nil
}
