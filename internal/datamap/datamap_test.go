package datamap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `map:
  region: the Gaza Strip
  languages:
    - Arabic
    - Hebrew
telegram:
  channels:
    - somechannel
    - otherchannel
date:
  timezone: Asia/Jerusalem
`

func writeDatamap(t *testing.T, root, name, cfg string) {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "datamap-config.yaml"), []byte(cfg), 0644))
}

func TestLoad(t *testing.T) {
	root := t.TempDir()
	writeDatamap(t, root, "gaza", sampleConfig)

	m, err := Load(root, "gaza")
	require.NoError(t, err)

	assert.Equal(t, "gaza", m.Name)
	assert.Equal(t, "the Gaza Strip", m.Region)
	assert.Equal(t, []string{"Arabic", "Hebrew"}, m.Languages)
	assert.Equal(t, []string{"somechannel", "otherchannel"}, m.Channels)
	assert.Equal(t, "Asia/Jerusalem", m.Location.String())
}

func TestLoadDefaultsToUTC(t *testing.T) {
	root := t.TempDir()
	writeDatamap(t, root, "plain", "map:\n  region: somewhere\n")

	m, err := Load(root, "plain")
	require.NoError(t, err)
	assert.Equal(t, "UTC", m.Location.String())
}

func TestLoadBadTimezone(t *testing.T) {
	root := t.TempDir()
	writeDatamap(t, root, "bad", "date:\n  timezone: Not/AZone\n")

	_, err := Load(root, "bad")
	assert.Error(t, err)
}

func TestLoadMissingConfig(t *testing.T) {
	_, err := Load(t.TempDir(), "absent")
	assert.Error(t, err)
}

func TestPaths(t *testing.T) {
	root := t.TempDir()
	writeDatamap(t, root, "gaza", sampleConfig)

	m, err := Load(root, "gaza")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "gaza"), m.Dir())
	assert.Equal(t, filepath.Join(root, "gaza", "acct", "gemini.json"), m.BatchPath("acct"))
	assert.Equal(t, filepath.Join(root, "gaza", "acct", "result.json"), m.ExportPath("acct"))
	assert.Equal(t, filepath.Join(root, "gaza", "telegram_gemini.jsonl"), m.LivePath())
}

func TestAccountsListsOnlyExportDirs(t *testing.T) {
	root := t.TempDir()
	writeDatamap(t, root, "gaza", sampleConfig)

	m, err := Load(root, "gaza")
	require.NoError(t, err)

	// One account with an export, one without, one stray file.
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gaza", "withexport"), 0755))
	require.NoError(t, os.WriteFile(m.ExportPath("withexport"), []byte("{}"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "gaza", "empty"), 0755))

	accounts, err := m.Accounts()
	require.NoError(t, err)
	assert.Equal(t, []string{"withexport"}, accounts)
}
