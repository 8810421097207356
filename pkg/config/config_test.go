package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "")

	configPath := writeConfig(t, `
anthropic:
  model: "claude-3-5-sonnet-20241022"
  api_key: "sk-test"
  max_tokens: 600
  temperature: 0.2

embeddings:
  base_url: "http://localhost:11434"
  model: "nomic-embed-text:latest"

database:
  url: "postgres://localhost:5432/coursechat"
  courses_table: "courses"
  chunks_table: "course_chunks"
  vector_dim: 768
  batch_size: 25

processor:
  chunk_size: 500
  chunk_overlap: 50

search:
  max_results: 3

session:
  max_history: 4

server:
  host: "127.0.0.1"
  port: 9000
`)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "claude-3-5-sonnet-20241022", config.Anthropic.Model)
	assert.Equal(t, "sk-test", config.Anthropic.APIKey)
	assert.Equal(t, 600, config.Anthropic.MaxTokens)
	assert.Equal(t, 0.2, config.Anthropic.Temperature)
	assert.Equal(t, "postgres://localhost:5432/coursechat", config.Database.URL)
	assert.Equal(t, 25, config.Database.BatchSize)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	assert.Equal(t, 3, config.Search.MaxResults)
	assert.Equal(t, 4, config.Session.MaxHistory)
	assert.Equal(t, 9000, config.Server.Port)
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("OLLAMA_BASE_URL", "")

	configPath := writeConfig(t, `
database:
  url: "postgres://localhost:5432/coursechat"
`)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "claude-3-5-sonnet-20241022", config.Anthropic.Model)
	assert.Equal(t, 800, config.Anthropic.MaxTokens)
	assert.Equal(t, "http://localhost:11434", config.Embeddings.BaseURL)
	assert.Equal(t, "nomic-embed-text:latest", config.Embeddings.Model)
	assert.Equal(t, "courses", config.Database.CoursesTable)
	assert.Equal(t, 768, config.Database.VectorDim)
	assert.Equal(t, 800, config.Processor.ChunkSize)
	assert.Equal(t, 100, config.Processor.ChunkOverlap)
	assert.Equal(t, 5, config.Search.MaxResults)
	assert.Equal(t, 2, config.Session.MaxHistory)
	assert.Equal(t, 8000, config.Server.Port)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-from-env")
	t.Setenv("DATABASE_URL", "postgres://env-host:5432/coursechat")
	t.Setenv("OLLAMA_BASE_URL", "http://ollama:11434")

	configPath := writeConfig(t, `
anthropic:
  api_key: "sk-from-file"
database:
  url: "postgres://file-host:5432/coursechat"
`)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "sk-from-env", config.Anthropic.APIKey)
	assert.Equal(t, "postgres://env-host:5432/coursechat", config.Database.URL)
	assert.Equal(t, "http://ollama:11434", config.Embeddings.BaseURL)
}

func TestValidate_ValidConfig(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/coursechat")
	t.Setenv("OLLAMA_BASE_URL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)
	assert.Empty(t, config.Validate())
}

func TestValidate_MissingAPIKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/coursechat")
	t.Setenv("OLLAMA_BASE_URL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	errs := config.Validate()
	require.Len(t, errs, 1)
	assert.Equal(t, "anthropic.api_key", errs[0].Field)
}

func TestValidate_BadValues(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/coursechat")
	t.Setenv("OLLAMA_BASE_URL", "")

	config, err := getDefaultConfig()
	require.NoError(t, err)

	config.Anthropic.MaxTokens = 10000
	config.Processor.ChunkOverlap = config.Processor.ChunkSize
	config.Server.Port = 70000

	fields := make(map[string]bool)
	for _, e := range config.Validate() {
		fields[e.Field] = true
	}
	assert.True(t, fields["anthropic.max_tokens"])
	assert.True(t, fields["processor.chunk_overlap"])
	assert.True(t, fields["server.port"])
}
