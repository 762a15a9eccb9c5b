package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
[llm]
provider = "openai"
model = "gpt-4o-mini"

[search]
fusion = "rrf"
keyword_weight = 0.7
vector_weight = 0.3
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, "rrf", cfg.Search.Fusion)
	assert.InDelta(t, 0.7, cfg.Search.KeywordWeight, 1e-9)
	// untouched sections keep their defaults
	assert.Equal(t, "sqlite", cfg.Graph.Backend)
	assert.Equal(t, 3, cfg.Search.Oversample)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoad_BadTOML(t *testing.T) {
	_, err := Load(writeConfig(t, "[llm\nprovider="))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse TOML")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "gemini")
	t.Setenv("MEMGRAPH_URI", "bolt://graph:7687")
	t.Setenv("GRAPH_MAX_HOPS", "2")
	t.Setenv("PORT", "9090")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, "bolt://graph:7687", cfg.Memgraph.URI)
	assert.Equal(t, 2, cfg.Graph.MaxHops)
	assert.Equal(t, "9090", cfg.Server.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"unknown keyword backend", func(c *Config) { c.Search.KeywordBackend = "solr" }, "keyword_backend"},
		{"unknown fusion", func(c *Config) { c.Search.Fusion = "max" }, "search.fusion"},
		{"zero weights", func(c *Config) { c.Search.KeywordWeight, c.Search.VectorWeight = 0, 0 }, "weights"},
		{"hops", func(c *Config) { c.Graph.MaxHops = 0 }, "max_hops"},
		{"es without url", func(c *Config) { c.Search.KeywordBackend = "elasticsearch" }, "elasticsearch.url"},
		{"milvus without address", func(c *Config) { c.Search.VectorBackend = "milvus" }, "milvus.address"},
		{"bad timeout", func(c *Config) { c.Answer.GenerationTimeout = "soon" }, "generation_timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestAnswerTimeout(t *testing.T) {
	d, err := AnswerConfig{GenerationTimeout: "1500ms"}.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, d)

	d, err = AnswerConfig{}.Timeout()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, d)
}
