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

package dsl

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/rapidloop/rstsql/internal/decl"
	"github.com/rapidloop/rstsql/internal/sqlprep"
)

var rxURLSafe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func isURLSafe(s string) bool {
	return s != "" && rxURLSafe.MatchString(s)
}

// Load walks root and builds a Catalog. A missing or unreadable root is a
// fatal error. Stray files at the root or in a project directory,
// unrecognized method directories, unsafe names, unreadable or non-UTF-8
// files and malformed preambles are logged as a warning and skipped;
// files beneath a method directory that do not end in ".sql" are skipped
// without a warning. The only other fatal condition is a
// duplicate (url_path, method) pair, which is a catalog construction error.
func Load(root string, logger zerolog.Logger) (*Catalog, error) {
	rootEntries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("dsl: cannot read root %q: %w", root, err)
	}

	var projects []Project
	for _, e := range rootEntries {
		if !e.IsDir() {
			logger.Warn().Str("path", filepath.Join(root, e.Name())).
				Msg("dsl: skipping non-directory entry at root")
			continue
		}
		name := e.Name()
		if !isURLSafe(name) {
			logger.Warn().Str("project", name).
				Msg("dsl: skipping project with non-URL-safe name")
			continue
		}

		endpoints := loadProject(filepath.Join(root, name), name, logger)
		projects = append(projects, Project{Name: name, Endpoints: endpoints})
	}

	sort.Slice(projects, func(i, j int) bool { return projects[i].Name < projects[j].Name })
	for i := range projects {
		endpoints := projects[i].Endpoints
		sort.Slice(endpoints, func(a, b int) bool {
			if endpoints[a].URLPath != endpoints[b].URLPath {
				return endpoints[a].URLPath < endpoints[b].URLPath
			}
			return endpoints[a].Method < endpoints[b].Method
		})
	}

	catalog := &Catalog{Projects: projects}
	if err := checkNoDuplicates(catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func checkNoDuplicates(c *Catalog) error {
	seen := make(map[string]bool)
	for _, p := range c.Projects {
		for _, ep := range p.Endpoints {
			key := ep.Method + " " + ep.URLPath
			if seen[key] {
				return fmt.Errorf("dsl: duplicate endpoint %s %s", ep.Method, ep.URLPath)
			}
			seen[key] = true
		}
	}
	return nil
}

func loadProject(projectDir, project string, logger zerolog.Logger) []Endpoint {
	entries, err := os.ReadDir(projectDir)
	if err != nil {
		logger.Warn().Str("project", project).Err(err).Msg("dsl: cannot read project directory")
		return nil
	}

	var endpoints []Endpoint
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() || (name != "GET" && name != "POST") {
			logger.Warn().Str("project", project).Str("entry", name).
				Msg("dsl: skipping entry that is not a GET or POST directory")
			continue
		}
		methodDir := filepath.Join(projectDir, name)
		endpoints = append(endpoints, walkMethodDir(methodDir, project, name, nil, logger)...)
	}
	return endpoints
}

func walkMethodDir(dir, project, method string, prefix []string, logger zerolog.Logger) []Endpoint {
	entries, err := os.ReadDir(dir)
	if err != nil {
		logger.Warn().Str("path", dir).Err(err).Msg("dsl: cannot read directory")
		return nil
	}

	var endpoints []Endpoint
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			if !isURLSafe(name) {
				logger.Warn().Str("path", filepath.Join(dir, name)).
					Msg("dsl: skipping subdirectory with non-URL-safe name")
				continue
			}
			sub := append(append([]string{}, prefix...), name)
			endpoints = append(endpoints, walkMethodDir(filepath.Join(dir, name), project, method, sub, logger)...)
			continue
		}

		if !e.Type().IsRegular() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		ep, ok := loadEndpointFile(filepath.Join(dir, name), project, method, prefix, name, logger)
		if ok {
			endpoints = append(endpoints, ep)
		}
	}
	return endpoints
}

func loadEndpointFile(path, project, method string, prefix []string, filename string, logger zerolog.Logger) (Endpoint, bool) {
	basename := strings.TrimSuffix(filename, ".sql")
	if !isURLSafe(basename) {
		logger.Warn().Str("path", path).Msg("dsl: skipping file with non-URL-safe basename")
		return Endpoint{}, false
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		logger.Warn().Str("path", path).Err(err).Msg("dsl: cannot read file")
		return Endpoint{}, false
	}
	if !utf8.Valid(raw) {
		logger.Warn().Str("path", path).Msg("dsl: skipping non-UTF-8 file")
		return Endpoint{}, false
	}
	source := string(raw)

	schemaYAML, malformed := extractPreamble(source)
	if malformed {
		logger.Warn().Str("path", path).Msg("dsl: skipping file with malformed preamble")
		return Endpoint{}, false
	}

	var declaration decl.Declaration
	if schemaYAML != "" {
		d, err := decl.Parse(schemaYAML)
		if err != nil {
			logger.Warn().Str("path", path).Err(err).Msg("dsl: skipping file with unparseable preamble yaml")
			return Endpoint{}, false
		}
		declaration = d
	}

	rewritten, params := sqlprep.Rewrite(source)

	segments := append([]string{project}, prefix...)
	segments = append(segments, basename)
	urlPath := "/" + strings.Join(segments, "/")

	return Endpoint{
		Tag:          project,
		Method:       method,
		URLPath:      urlPath,
		SQLSource:    source,
		RewrittenSQL: rewritten,
		ParamOrder:   params,
		SchemaYAML:   schemaYAML,
		Declaration:  declaration,
	}, true
}

// extractPreamble returns the body of a leading "/* ... */" comment, if the
// (whitespace-trimmed) source begins with one. malformed is true only when
// the source begins with "/*" but no closing "*/" is ever found.
func extractPreamble(source string) (body string, malformed bool) {
	trimmed := strings.TrimLeft(source, " \t\r\n")
	if !strings.HasPrefix(trimmed, "/*") {
		return "", false
	}
	rest := trimmed[2:]
	idx := strings.Index(rest, "*/")
	if idx < 0 {
		return "", true
	}
	return rest[:idx], false
}
