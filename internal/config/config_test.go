package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 1000, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, 0.7, cfg.Retrieval.SemanticWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.KeywordWeight)
	assert.Equal(t, 0.3, cfg.Retrieval.MinScore)
	assert.Equal(t, 6000, cfg.Retrieval.MaxContextChars)
	assert.Equal(t, "mistral-large-latest", cfg.Generator.Model)
	assert.Equal(t, 0.6, cfg.Generator.RetrievalWeight)
	assert.Equal(t, 0.4, cfg.Generator.QualityWeight)
	assert.Equal(t, "index.json", cfg.Index.Path)
	assert.NotEmpty(t, cfg.Categories)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking:\n  size: 500\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Chunking.Size)
	assert.Equal(t, 200, cfg.Chunking.Overlap)
	assert.Equal(t, "hashing", cfg.Embedder.Type)
}

func TestLoadOpenAIEmbedderDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder:\n  type: openai\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.OpenAI.APIKeyEnv)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\n  - ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.yaml")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Chunking.Size = 750
	cfg.Storage.Path = "docqa.db"

	require.NoError(t, Save(path, cfg))
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestAPITokenResolvedFromEnv(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	t.Setenv("DOCQA_API_TOKEN", "secret")
	assert.Equal(t, "secret", cfg.APIToken())
}
