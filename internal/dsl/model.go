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

// Package dsl loads a directory of SQL files, one per HTTP endpoint, into an
// in-memory Catalog. A file at <root>/<project>/<GET|POST>/[<subdir>/...]<name>.sql
// becomes the endpoint /<project>/[<subdir>/...]<name> for that method.
package dsl

import "github.com/rapidloop/rstsql/internal/decl"

// Endpoint is one SQL file exposed as one HTTP operation.
type Endpoint struct {
	// Tag is the owning project's name, used for OpenAPI grouping.
	Tag string

	// Method is "GET" or "POST".
	Method string

	// URLPath is the slash-delimited absolute path this endpoint is
	// reachable at, e.g. "/demo/users/byId".
	URLPath string

	// SQLSource is the file's raw contents, preamble included.
	SQLSource string

	// RewrittenSQL is SQLSource with ":name" placeholders rewritten to
	// positional "$N" binds.
	RewrittenSQL string

	// ParamOrder is the ordered list of placeholder names as they first
	// appear (left to right, duplicates preserved) in SQLSource.
	ParamOrder []string

	// SchemaYAML is the body of the leading "/* ... */" preamble, if any.
	// Empty when the file has no preamble.
	SchemaYAML string

	// Declaration is SchemaYAML already parsed; the zero value if
	// SchemaYAML is empty. Load skips files whose preamble fails to parse.
	Declaration decl.Declaration
}

// Project groups the endpoints found under one top-level DSL directory.
type Project struct {
	Name      string
	Endpoints []Endpoint
}

// Catalog is the complete, immutable set of endpoints discovered under a
// DSL root.
type Catalog struct {
	Projects []Project
}

// Endpoints flattens the catalog into a single slice, in catalog order.
func (c *Catalog) Endpoints() []Endpoint {
	var all []Endpoint
	for _, p := range c.Projects {
		all = append(all, p.Endpoints...)
	}
	return all
}
