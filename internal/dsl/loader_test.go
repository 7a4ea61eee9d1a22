package dsl

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadBasicCatalog(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "demo", "GET", "users", "byId.sql"),
		"SELECT id, name FROM users WHERE id = :id::int")
	writeFile(t, filepath.Join(root, "demo", "POST", "users", "create.sql"),
		"INSERT INTO users(name, admin) VALUES(:name, :admin) RETURNING id")

	cat, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	require.Len(t, cat.Projects, 1)
	assert.Equal(t, "demo", cat.Projects[0].Name)
	require.Len(t, cat.Projects[0].Endpoints, 2)

	all := cat.Endpoints()
	assert.Equal(t, "/demo/users/byId", all[0].URLPath)
	assert.Equal(t, "GET", all[0].Method)
	assert.Equal(t, []string{"id"}, all[0].ParamOrder)
	assert.Equal(t, "SELECT id, name FROM users WHERE id = $1::int", all[0].RewrittenSQL)

	assert.Equal(t, "/demo/users/create", all[1].URLPath)
	assert.Equal(t, "POST", all[1].Method)
	assert.Equal(t, []string{"name", "admin"}, all[1].ParamOrder)
}

func TestLoadSkipsStrayFilesAndBadDirs(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "strayfile.txt"), "oops")
	writeFile(t, filepath.Join(root, "demo", "PUT", "x.sql"), "SELECT 1")
	writeFile(t, filepath.Join(root, "demo", "GET", "ok.sql"), "SELECT 1")

	cat, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	all := cat.Endpoints()
	require.Len(t, all, 1)
	assert.Equal(t, "/demo/ok", all[0].URLPath)
}

func TestLoadMissingRootIsFatal(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist"), zerolog.Nop())
	require.Error(t, err)
}

func TestLoadDuplicateEndpointIsFatal(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a", "GET", "x.sql"), "SELECT 1")
	writeFile(t, filepath.Join(root, "b", "GET", "x.sql"), "SELECT 1")
	// force a collision: same project name won't normally collide, so
	// reuse one project with two files that map to the same url path via
	// nested dirs is hard to construct accidentally; instead assert that
	// two projects with disjoint paths do NOT collide (sanity), then prove
	// duplicate detection directly against the catalog helper.
	cat, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, checkNoDuplicates(cat))

	cat.Projects = append(cat.Projects, Project{
		Name: "dup",
		Endpoints: []Endpoint{
			{Method: "GET", URLPath: "/dup/x"},
			{Method: "GET", URLPath: "/dup/x"},
		},
	})
	require.Error(t, checkNoDuplicates(cat))
}

func TestPreambleExtraction(t *testing.T) {
	root := t.TempDir()
	sql := "/* declaration:\n  description: hi\n*/\nSELECT 1"
	writeFile(t, filepath.Join(root, "demo", "GET", "hi.sql"), sql)

	cat, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	all := cat.Endpoints()
	require.Len(t, all, 1)
	assert.Contains(t, all[0].SchemaYAML, "description: hi")
	assert.Equal(t, "hi", all[0].Declaration.Description)
	// preamble is retained verbatim in the SQL passed to the preprocessor
	assert.Contains(t, all[0].RewrittenSQL, "/* declaration:")
}

func TestMalformedPreambleSkipsEndpoint(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "demo", "GET", "bad.sql"), "/* never closed\nSELECT 1")

	cat, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, cat.Endpoints())
}

func TestLoadIdempotent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "demo", "GET", "a.sql"), "SELECT 1")
	writeFile(t, filepath.Join(root, "demo", "POST", "b.sql"), "SELECT 2")

	cat1, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	cat2, err := Load(root, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, cat1.Endpoints(), cat2.Endpoints())
}
