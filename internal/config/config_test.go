package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9090\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "data/expenseflow.db", cfg.Database.Path)
	assert.Equal(t, 10, cfg.Chat.MaxToolRounds)
	assert.Equal(t, int64(1), cfg.Chat.DefaultUserID)
	assert.Equal(t, int64(2), cfg.Chat.DefaultReviewerID)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_ChatDisabledWithoutEndpoint(t *testing.T) {
	path := writeConfig(t, "openai:\n  endpoint: \"\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.False(t, cfg.ChatEnabled())
}

func TestLoad_EndpointRequiresAPIKey(t *testing.T) {
	path := writeConfig(t, "openai:\n  endpoint: https://api.openai.com/v1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")
}

func TestLoad_EndpointWithKeyEnablesChat(t *testing.T) {
	path := writeConfig(t, "openai:\n  endpoint: https://api.openai.com/v1\n  api_key: test-key\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.True(t, cfg.ChatEnabled())
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate_BadPort(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 0

	assert.Error(t, cfg.Validate())
}
