package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFileAppliesDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Knowledge.Backend)
	assert.Equal(t, 3, cfg.Chat.RetrievalK)
	assert.Equal(t, 30, cfg.Chat.RecentDays)
	assert.Equal(t, 150, cfg.LLM.MaxTokens)
	assert.InDelta(t, 0.7, cfg.LLM.Temperature, 1e-6)
	assert.Equal(t, "text-embedding-ada-002", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 10, cfg.RateLimit.ChatPerMinute)
	assert.Equal(t, "./evaluation/dataset.json", cfg.Eval.DatasetPath)
}

func TestLoadFileReadsSections(t *testing.T) {
	body := `
knowledge:
  dir: /srv/kb
  backend: milvus
  watch: true
  adminToken: kb-secret
milvus:
  collectionName: faq
chat:
  retrievalK: 5
`
	cfg, err := LoadFile(writeConfig(t, body))
	require.NoError(t, err)

	assert.Equal(t, "/srv/kb", cfg.Knowledge.Dir)
	assert.Equal(t, "milvus", cfg.Knowledge.Backend)
	assert.True(t, cfg.Knowledge.Watch)
	assert.Equal(t, "kb-secret", cfg.Knowledge.AdminToken)
	assert.Equal(t, "faq", cfg.Milvus.CollectionName)
	assert.Equal(t, 5, cfg.Chat.RetrievalK)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("ORDER_CHATBOT_LLM_MODEL", "gpt-4o-mini")

	cfg, err := LoadFile(writeConfig(t, "llm:\n  model: gpt-3.5-turbo\n"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
}

func TestValidateRejectsUnknownBackend(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "knowledge:\n  backend: pinecone\n"))
	assert.ErrorContains(t, err, "invalid knowledge backend")
}

func TestValidateRejectsNonPositiveRetrievalK(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "chat:\n  retrievalK: 0\n"))
	assert.Error(t, err)
}
