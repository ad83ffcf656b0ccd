package userconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingConfig(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, &UserConfig{}, cfg)
}

func TestSaveAndLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	require.NoError(t, Save(&UserConfig{ServerURL: "https://orbo.example.com", SelectedOrgID: "org-1"}))

	data, err := os.ReadFile(filepath.Join(home, ".config", "orbo", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "server_url: https://orbo.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "org-1", cfg.SelectedOrgID)
}

func TestUpdate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, Save(&UserConfig{ServerURL: "http://localhost:8080", Email: "a@example.com"}))

	require.NoError(t, Update(func(c *UserConfig) { c.SelectedOrgID = "org-2" }))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL)
	assert.Equal(t, "a@example.com", cfg.Email)
	assert.Equal(t, "org-2", cfg.SelectedOrgID)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "orbo")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server_url: [unclosed"), 0600))

	_, err := Load()
	assert.Error(t, err)
}
