package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SHOPMESH_CONFIG_FILE", "testdata/does-not-exist.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.API.ListenAddress)
	assert.Equal(t, 30*time.Second, cfg.API.RequestTimeout)
	assert.True(t, cfg.API.RateLimit.Enabled)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost:6379", cfg.Cache.Address)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.ChatModel)
	assert.Equal(t, 1024, cfg.LLM.EmbeddingDims)
	assert.Equal(t, 5, cfg.Agent.MaxSteps)
	assert.Equal(t, "shopmesh_session", cfg.Auth.SessionCookieName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SHOPMESH_CONFIG_FILE", "testdata/does-not-exist.yaml")
	t.Setenv("SHOPMESH_API_LISTEN_ADDRESS", ":9999")
	t.Setenv("SHOPMESH_LLM_CHAT_MODEL", "gpt-4o")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9999", cfg.API.ListenAddress)
	assert.Equal(t, "gpt-4o", cfg.LLM.ChatModel)
}

func TestValidate(t *testing.T) {
	t.Setenv("SHOPMESH_CONFIG_FILE", "testdata/does-not-exist.yaml")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(), "missing llm api key must fail validation")

	cfg.LLM.APIKey = "sk-test"
	cfg.Database.Username = "shopmesh"
	assert.NoError(t, cfg.Validate())
}
