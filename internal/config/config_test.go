package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "text-embedding-3-small", cfg.EmbedModel)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.False(t, cfg.UsesEndpoint())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gql-index.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir = "/var/lib/gql-index"

[schema]
endpoint = "https://api.example.com/graphql"
timeout_seconds = 5
[schema.headers]
Authorization = "Bearer secret"

[embedding]
provider = "local"
model = "hash-64"
dim = 32

[store]
backend = "sqlite"
`), 0o644))

	cfg := Default()
	require.NoError(t, cfg.mergeFile(path))
	assert.Equal(t, "/var/lib/gql-index", cfg.DataDir)
	assert.Equal(t, "https://api.example.com/graphql", cfg.EndpointURL)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"Authorization"}, cfg.HeaderNames())
	assert.Equal(t, "local", cfg.EmbedProvider)
	assert.Equal(t, 32, cfg.EmbedDim)
	assert.Equal(t, "sqlite", cfg.StoreBackend)
	assert.True(t, cfg.UsesEndpoint())
	require.NoError(t, cfg.Validate())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestMergeEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"GRAPHQL_EMBEDDER_DATA_DIR": "/tmp/idx",
		"GRAPHQL_EMBED_MODEL":       "text-embedding-3-large",
		"OPENAI_API_KEY":            "sk-test",
	}
	cfg.mergeEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, "/tmp/idx", cfg.DataDir)
	assert.Equal(t, "text-embedding-3-large", cfg.EmbedModel)
	assert.Equal(t, "sk-test", cfg.EmbedAPIKey)
	assert.Equal(t, "schema.graphql", cfg.SchemaPath)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.EmbedProvider = "magic"
	cfg.StoreBackend = "s3"
	cfg.Timeout = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported embed provider")
	assert.Contains(t, err.Error(), "unsupported store backend")
	assert.Contains(t, err.Error(), "timeout")
}

func TestParseHeaders(t *testing.T) {
	h, err := ParseHeaders([]string{"Authorization: Bearer a:b", "X-Trace:  1 "})
	require.NoError(t, err)
	assert.Equal(t, "Bearer a:b", h["Authorization"])
	assert.Equal(t, "1", h["X-Trace"])

	_, err = ParseHeaders([]string{"no-colon"})
	assert.Error(t, err)
	_, err = ParseHeaders([]string{": value"})
	assert.Error(t, err)
}

func TestLockDir(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.DataDir, cfg.LockDir())
	cfg.StoreBackend = BackendMemory
	assert.Empty(t, cfg.LockDir())
}
