package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "localhost", "user": "rag", "dbname": "rag"},
		"ai": {"embedders": [{"name": "primary", "provider": "openai", "model": "text-embedding-3-small", "data": {}}]},
		"file_store": {"type": "local", "data": {"dir": "/tmp/manuals"}}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 5432, cfg.Database.Port)
	require.Equal(t, 10, cfg.Database.ConnectTimeout)
	require.Equal(t, 2500, cfg.Ingest.MaxChunkLength)
	require.True(t, cfg.Ingest.OverlapEnabled())
	require.Equal(t, "en", cfg.Ingest.TargetLanguage)
	require.Equal(t, 5, cfg.Retrieval.Limit)
	require.Equal(t, 40, cfg.Retrieval.BranchLimit)
	require.Equal(t, 60, cfg.Retrieval.RRFK)
	require.Equal(t, 512, cfg.AI.Dimensions)
	require.Equal(t, "info", cfg.LogConfig.Level)
}

func TestLoadOverlapDisabled(t *testing.T) {
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"dsn": "postgres://x"},
		"ingest": {"overlap": false},
		"ai": {"embedders": [{"provider": "ollama", "model": "nomic"}]}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.False(t, cfg.Ingest.OverlapEnabled())
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "missing port", body: `{"database": {"dsn": "x"}, "ai": {"embedders": [{"provider": "openai"}]}}`},
		{name: "missing db", body: `{"port": 1, "ai": {"embedders": [{"provider": "openai"}]}}`},
		{name: "wrong dimensions", body: `{"port": 1, "database": {"dsn": "x"}, "ai": {"dimensions": 768, "embedders": [{"provider": "openai"}]}}`},
		{name: "no embedder", body: `{"port": 1, "database": {"dsn": "x"}}`},
		{name: "bad store", body: `{"port": 1, "database": {"dsn": "x"}, "ai": {"embedders": [{"provider": "openai"}]}, "file_store": {"type": "ftp"}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestLoadSecretsFromEnv(t *testing.T) {
	t.Setenv(envDBPassword, "from-env")
	t.Setenv(envOpenAIKey, "sk-test")
	path := writeConfig(t, `{
		"port": 8080,
		"database": {"host": "db", "password": "from-file"},
		"ai": {"embedders": [{"provider": "openai", "model": "m", "data": {"base_url": "http://x"}}]}
	}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.Database.Password)
	data, ok := cfg.AI.Embedders[0].Data.(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "sk-test", data["api_key"])
	require.Equal(t, "http://x", data["base_url"])
}
