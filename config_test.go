package pyhints_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rlch/pyhints"
)

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := pyhints.ParseConfig([]byte(`
oracle: custom
hints:
  parameters:
    lambdas: false
  types:
    returns: false
files:
  "tests/*.py":
    parameters:
      functions: false
suppress:
  - name: no-private
    when: Name startsWith "_"
`))
	require.NoError(t, err)

	assert.Equal(t, "custom", cfg.OracleName())
	require.Len(t, cfg.Suppress, 1)
	assert.Equal(t, "no-private", cfg.Suppress[0].Name)

	want := pyhints.DefaultSettings()
	want.ShowLambdaHints = false
	want.ShowFunctionReturnTypeHints = false
	assert.Equal(t, want, cfg.Settings())
	assert.Equal(t, want, cfg.SettingsFor("/repo/src/app.py"))

	want.ShowFunctionCallHints = false
	assert.Equal(t, want, cfg.SettingsFor("/repo/tests/test_app.py"))
	assert.Equal(t, want, cfg.SettingsFor("tests/test_app.py"))
}

func TestParseConfigInvalid(t *testing.T) {
	t.Parallel()

	_, err := pyhints.ParseConfig([]byte("hints: [1, 2"))
	require.Error(t, err)
}

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := &pyhints.Config{}

	assert.Equal(t, pyhints.DefaultOracle, cfg.OracleName())
	assert.Equal(t, pyhints.DefaultSettings(), cfg.SettingsFor("a.py"))
}

func TestFindConfig(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	nested := filepath.Join(root, "pkg", "sub")
	require.NoError(t, os.MkdirAll(nested, 0o750))

	path := filepath.Join(root, ".pyhints.yml")
	require.NoError(t, os.WriteFile(path, []byte("oracle: treesitter\n"), 0o600))

	found, err := pyhints.FindConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, path, found)

	cfg, err := pyhints.LoadConfig(nested)
	require.NoError(t, err)
	assert.Equal(t, "treesitter", cfg.Oracle)

	cfg, got, err := pyhints.LoadConfigOrDefault(nested)
	require.NoError(t, err)
	assert.Equal(t, path, got)
	assert.NotNil(t, cfg)
}

func TestLoadConfigOrDefaultBrokenFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".pyhints.yaml")
	require.NoError(t, os.WriteFile(path, []byte("hints: {"), 0o600))

	_, got, err := pyhints.LoadConfigOrDefault(dir)
	require.Error(t, err)
	assert.Equal(t, path, got)
}
