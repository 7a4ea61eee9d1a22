package sqlprep

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewriteBasic(t *testing.T) {
	cases := []struct {
		sql        string
		wantSQL    string
		wantParams []string
	}{
		{"SELECT 1", "SELECT 1", nil},
		{"SELECT :id::int", "SELECT $1::int", []string{"id"}},
		{"SELECT * FROM t WHERE a = :x AND b = :y", "SELECT * FROM t WHERE a = $1 AND b = $2", []string{"x", "y"}},
		{"SELECT :x, :x", "SELECT $1, $2", []string{"x", "x"}},
		{"::text", "::text", nil},
		{":1abc", ":1abc", nil},
		{"trailing:", "trailing:", nil},
		{"café :naïve", "café $1ïve", []string{"na"}}, // unicode letters aren't identifier chars: the name stops at "ï"
		{"nocolon", "nocolon", nil},
	}
	for _, c := range cases {
		gotSQL, gotParams := Rewrite(c.sql)
		assert.Equal(t, c.wantSQL, gotSQL, "sql for %q", c.sql)
		assert.Equal(t, c.wantParams, gotParams, "params for %q", c.sql)
	}
}

func TestRewriteS1Scenario(t *testing.T) {
	sql, params := Rewrite("SELECT :id::int")
	assert.Equal(t, "SELECT $1::int", sql)
	assert.Equal(t, []string{"id"}, params)
}

// property 1: every "::" in s appears as "::" in rewrite(s).0, same order.
func TestPropertyCastsPreserved(t *testing.T) {
	inputs := []string{
		"a::b::c",
		"SELECT :x::int, y::text",
		"no casts here",
	}
	for _, s := range inputs {
		rewritten, _ := Rewrite(s)
		wantCasts := strings.Count(s, "::")
		gotCasts := strings.Count(rewritten, "::")
		assert.Equal(t, wantCasts, gotCasts, "for %q", s)
	}
}

// property 2: len(params) equals the number of distinct $k tokens, 1..n in order.
func TestPropertyPlaceholderOrdering(t *testing.T) {
	rewritten, params := Rewrite("SELECT :a, :b, :c WHERE :a = :a")
	assert.Equal(t, []string{"a", "b", "c", "a", "a"}, params)
	assert.Equal(t, "SELECT $1, $2, $3 WHERE $4 = $5", rewritten)
}

// property 4: rewrite(":" ++ id ++ rest) is "$1" followed by rewrite(rest).0
// with each of rest's placeholders numbered one higher, and its params are
// [id] followed by rewrite(rest).1.
func TestPropertyPrefixDecomposition(t *testing.T) {
	id := "foo"
	rest := " bar :baz"
	whole, wholeParams := Rewrite(":" + id + rest)
	restRewritten, restParams := Rewrite(rest)
	assert.Equal(t, " bar $1", restRewritten)
	assert.Equal(t, "$1 bar $2", whole)
	assert.Equal(t, append([]string{id}, restParams...), wholeParams)
}
