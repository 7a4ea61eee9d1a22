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

// Package sqlprep rewrites PostgreSQL source containing ":name" style named
// placeholders into positional "$N" binds, while leaving the "::" type-cast
// operator untouched.
package sqlprep

import (
	"strconv"
	"strings"
)

func isIdentStart(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
}

func isIdentCont(c byte) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

// Rewrite scans sql left to right and replaces each ":name" occurrence with
// a positional "$k" bind, where k is the 1-based position of this
// occurrence among all placeholders (a name used more than once yields one
// "$k" per occurrence, all distinct). "::" is recognized and passed through verbatim
// ahead of placeholder recognition, so a cast like ":id::int" only captures
// "id". The scan is context-free: it does not track string or comment
// state, so a ":" followed by an identifier inside a literal is still
// rewritten. This matches the behavior of the system being modeled.
func Rewrite(sql string) (rewritten string, params []string) {
	var b strings.Builder
	b.Grow(len(sql))

	i := 0
	n := len(sql)
	for i < n {
		c := sql[i]
		if c != ':' {
			b.WriteByte(c)
			i++
			continue
		}

		// "::" cast operator takes precedence over placeholder recognition.
		if i+1 < n && sql[i+1] == ':' {
			b.WriteString("::")
			i += 2
			continue
		}

		// try to read an identifier after the colon
		j := i + 1
		if j < n && isIdentStart(sql[j]) {
			start := j
			j++
			for j < n && isIdentCont(sql[j]) {
				j++
			}
			name := sql[start:j]
			params = append(params, name)
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(len(params)))
			i = j
			continue
		}

		// lone ':' with nothing identifier-like following it
		b.WriteByte(':')
		i++
	}

	return b.String(), params
}
