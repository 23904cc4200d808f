package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestLoadManifests_DecodesTaskBlockWithLabel(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	writeManifest(t, dir, "api.hcl", `
task "api" {
  kind        = "long"
  command     = ["api-server", "--port", "8080"]
  default_on  = true

  upstream {
    strong = ["db"]
    weak   = ["cache"]
  }

  readiness {
    check  = "tcp_socket"
    target = "127.0.0.1:8080"
  }
}
`)

	tasks, err := LoadManifests([]string{dir})
	require.NoError(err)
	require.Len(tasks, 1)

	m := tasks[0]
	require.Equal("api", m.ID)
	require.Equal("long", m.Kind)
	require.Equal([]string{"api-server", "--port", "8080"}, m.Command)
	require.True(m.DefaultOn)
	require.Equal([]string{"db"}, m.Upstream.Strong)
	require.Equal([]string{"cache"}, m.Upstream.Weak)
	require.Equal("tcp_socket", m.Readiness.Check)
}

func TestLoadManifests_AggregatesErrorsAcrossFiles(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	writeManifest(t, dir, "bad1.hcl", `task "bad1" { kind = `)
	writeManifest(t, dir, "bad2.hcl", `task "bad2" { kind = `)

	tasks, err := LoadManifests([]string{dir})
	require.Error(err)
	require.Nil(tasks)
	require.Contains(err.Error(), "bad1.hcl")
	require.Contains(err.Error(), "bad2.hcl")
}

func TestLoadManifests_MissingDirectoryIsAggregatedError(t *testing.T) {
	require := require.New(t)
	_, err := LoadManifests([]string{filepath.Join(t.TempDir(), "does-not-exist")})
	require.Error(err)
}

func TestLoadManifests_MultipleTaskBlocksPerFile(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()
	writeManifest(t, dir, "group.hcl", `
task "one" { kind = "empty" }
task "two" { kind = "empty" }
`)

	tasks, err := LoadManifests([]string{dir})
	require.NoError(err)
	require.Len(tasks, 2)
	require.Equal("one", tasks[0].ID)
	require.Equal("two", tasks[1].ID)
}
