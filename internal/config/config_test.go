package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.EmbeddingBackend)
	assert.Equal(t, 1000, cfg.Chunker.ChunkSize)
	assert.Equal(t, 50, cfg.Chunker.Overlap)
	assert.Equal(t, "sqlite", cfg.Store.Type)
	assert.Equal(t, "docs_embeddings", cfg.Store.Table)
	assert.Equal(t, 10, cfg.Retrieval.Limit)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Providers["openai"].APIKeyEnv)
}

func TestLoadAppliesDefaultsToPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
providers:
  groq:
    model: mixtral-8x7b-32768
chunker:
  chunk_size: 400
  overlap: 25
store:
  type: qdrant
  qdrant:
    url: http://localhost:6333
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mixtral-8x7b-32768", cfg.Providers["groq"].Model)
	assert.Equal(t, "GROQ_API_KEY", cfg.Providers["groq"].APIKeyEnv)
	assert.Equal(t, 400, cfg.Chunker.ChunkSize)
	assert.Equal(t, 25, cfg.Chunker.Overlap)
	assert.Equal(t, "qdrant", cfg.Store.Type)
	assert.Equal(t, "docs_embeddings", cfg.Store.Table)
	assert.Equal(t, "gpt-4o", cfg.Providers["openai"].Model)
	assert.Equal(t, 1536, cfg.Retrieval.Dims)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Store.Table = "custom_table"
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom_table", loaded.Store.Table)
	assert.Equal(t, cfg.Providers["gemini"].Model, loaded.Providers["gemini"].Model)
}
