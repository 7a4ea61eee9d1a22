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

// The package rstsql implements an HTTP+JSON API server that publishes a
// directory of SQL files as endpoints against PostgreSQL. [NewAPIServer]
// loads the directory (see package internal/dsl for the layout), compiles
// an OpenAPI document from the per-file YAML preambles, and returns an
// [APIServer] ready to [APIServer.Start].
//
// The code for the `cmd/rstsql` CLI tool is a good example of how to use
// the APIServer.
package rstsql
