package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	domainconfig "neuronote/domain/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ServerAddress)
	assert.Equal(t, "sqlite", cfg.DatabaseDriver)
	assert.Equal(t, "chromem", cfg.VectorBackend)
	assert.Equal(t, 30*time.Second, cfg.RepairInterval)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_DRIVER", "POSTGRES")
	t.Setenv("VECTOR_BACKEND", "pgvector")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "pgvector needs postgres",
			env:     map[string]string{"VECTOR_BACKEND": "pgvector"},
			wantErr: "requires DATABASE_DRIVER=postgres",
		},
		{
			name:    "unknown provider",
			env:     map[string]string{"LLM_PROVIDER": "llama"},
			wantErr: "unsupported LLM_PROVIDER",
		},
		{
			name:    "production needs jwt",
			env:     map[string]string{"ENVIRONMENT": "production", "LLM_API_KEY": "k"},
			wantErr: "JWT_SECRET or JWT_PUBLIC_KEY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewTunables_ReadsConfigFile(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "neuronote.yaml")
	require.NoError(t, os.WriteFile(path, []byte("RAG_TOP_K: 30\nRAG_RELEVANCE_FLOOR: 0.35\nLLM_MODEL: mistral-small-latest\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)

	// Act
	tunables, err := NewTunables(zap.NewNop())

	// Assert
	require.NoError(t, err)
	cfg := tunables.Retrieval()
	assert.Equal(t, 30, cfg.TopK)
	assert.Equal(t, 5, cfg.TopN)
	assert.InDelta(t, 0.35, cfg.RelevanceFloor, 1e-9)
	assert.Equal(t, "mistral-small-latest", cfg.Model)
	assert.Equal(t, 10, cfg.HistoryWindow)
}

func TestNewTunables_RejectsInvalidFloor(t *testing.T) {
	t.Setenv("RAG_RELEVANCE_FLOOR", "1.5")

	_, err := NewTunables(zap.NewNop())

	require.Error(t, err)
}

func TestTunables_Reload_KeepsCurrentOnInvalidEdit(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "neuronote.yaml")
	require.NoError(t, os.WriteFile(path, []byte("RAG_TOP_N: 4\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	v, err := newViper()
	require.NoError(t, err)
	initial, err := retrievalFromViper(v)
	require.NoError(t, err)
	tunables := StaticTunables(initial)

	// Act
	require.NoError(t, os.WriteFile(path, []byte("RAG_TOP_N: 99\n"), 0o600))
	require.NoError(t, v.ReadInConfig())
	tunables.reload(v, path)

	// Assert
	assert.Equal(t, 4, tunables.Retrieval().TopN)
}

func TestTunables_Reload_AppliesValidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "neuronote.yaml")
	require.NoError(t, os.WriteFile(path, []byte("RAG_HISTORY_WINDOW: 10\n"), 0o600))
	t.Setenv("CONFIG_FILE", path)
	v, err := newViper()
	require.NoError(t, err)
	tunables := StaticTunables(domainconfig.DefaultRetrievalConfig())

	require.NoError(t, os.WriteFile(path, []byte("RAG_HISTORY_WINDOW: 4\nRAG_RELEVANCE_FLOOR: 0.5\n"), 0o600))
	require.NoError(t, v.ReadInConfig())
	tunables.reload(v, path)

	assert.Equal(t, 4, tunables.Retrieval().HistoryWindow)
	assert.InDelta(t, 0.5, tunables.Retrieval().RelevanceFloor, 1e-9)
}
