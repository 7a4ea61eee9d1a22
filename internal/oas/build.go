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

package oas

import (
	"strings"

	"github.com/rapidloop/rstsql/internal/decl"
	"github.com/rapidloop/rstsql/internal/dsl"
)

// Build compiles a catalog's per-file YAML declarations into an OpenAPI 3
// document: one operation per endpoint, with request/response schemas also
// registered as named components.
func Build(catalog *dsl.Catalog, version string) *Document {
	doc := &Document{
		OpenAPI: "3.0.3",
		Info:    Info{Title: "RstSQL API", Version: version},
		Paths:   make(map[string]*PathItem),
		Components: &Components{
			Schemas: make(map[string]*Schema),
		},
	}

	for _, ep := range catalog.Endpoints() {
		pi, ok := doc.Paths[ep.URLPath]
		if !ok {
			pi = &PathItem{}
			doc.Paths[ep.URLPath] = pi
		}

		op := &Operation{
			OperationID: ep.URLPath,
			Tags:        []string{ep.Tag},
			Description: ep.Declaration.Description,
			Responses:   make(map[string]Response),
		}

		if len(ep.Declaration.Response.Fields) > 0 {
			respSchema := fieldsToSchema(ep.Declaration.Response.Fields)
			doc.Components.Schemas[componentName("Response", ep.URLPath)] = respSchema
			op.Responses["200"] = Response{
				Description: "OK",
				Content: map[string]MediaType{
					"application/json": {Schema: &Schema{Type: "array", Items: respSchema}},
				},
			}
		} else {
			op.Responses["200"] = Response{Description: "OK"}
		}

		switch ep.Method {
		case "GET":
			for _, q := range ep.Declaration.Allowlist.Query {
				op.Parameters = append(op.Parameters, Parameter{
					Name:        q.Field,
					In:          "query",
					Required:    true,
					Description: q.Description,
					Schema:      &Schema{Type: "string"},
				})
			}
			pi.Get = op
		case "POST":
			if len(ep.Declaration.Allowlist.Body) > 0 {
				bodySchema := fieldsToSchema(ep.Declaration.Allowlist.Body)
				doc.Components.Schemas[componentName("Post", ep.URLPath)] = bodySchema
				op.RequestBody = &RequestBody{
					Required: true,
					Content: map[string]MediaType{
						"application/json": {Schema: bodySchema},
					},
				}
			}
			pi.Post = op
		}
	}

	return doc
}

// fieldsToSchema converts a top-level field list (response.fields or
// allowlist.body) into an object schema, the same way a nested "object"
// field's own Fields list would be converted.
func fieldsToSchema(fields []decl.Field) *Schema {
	s := &Schema{Type: "object", Properties: make(map[string]*Schema)}
	for _, f := range fields {
		s.Properties[f.Field] = fieldToSchema(f)
		if !f.Optional {
			s.Required = append(s.Required, f.Field)
		}
	}
	return s
}

// fieldToSchema maps one declaration field to a schema node per the YAML
// type -> OpenAPI type table.
func fieldToSchema(f decl.Field) *Schema {
	s := &Schema{Description: f.Description}

	switch f.Type {
	case "string", "timestamp":
		s.Type = "string"
		if len(f.Enum) > 0 {
			s.Enum = f.Enum
		}
	case "number", "integer":
		s.Type = "number"
	case "boolean", "bool":
		s.Type = "boolean"
	case "object":
		s.Type = "object"
		if len(f.Fields) > 0 {
			s.Properties = make(map[string]*Schema)
			for _, inner := range f.Fields {
				s.Properties[inner.Field] = fieldToSchema(inner)
				if !inner.Optional {
					s.Required = append(s.Required, inner.Field)
				}
			}
		}
	case "array":
		s.Type = "array"
		if f.Items != nil {
			s.Items = fieldToSchema(*f.Items)
		} else {
			s.Items = &Schema{}
		}
	default:
		// unknown type: object with no "type" keyword set
	}

	return s
}

// componentName builds the "Response<UrlPath>" / "Post<UrlPath>" component
// name: url path segments, each converted to an UpperCamelCase word, with
// existing internal camel-casing (e.g. "byId") preserved.
func componentName(prefix, urlPath string) string {
	var b strings.Builder
	b.WriteString(prefix)
	for _, seg := range strings.Split(strings.Trim(urlPath, "/"), "/") {
		b.WriteString(upperCamelWord(seg))
	}
	return b.String()
}

func upperCamelWord(s string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '_' }) {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}
