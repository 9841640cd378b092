package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
	assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	assert.Equal(t, "embeddinggemma", cfg.EmbeddingModel)
	assert.Equal(t, "qwen2.5:3b", cfg.ChatModel)
	assert.Equal(t, "none", cfg.APIKey)
	assert.InDelta(t, 0.1, cfg.Temperature, 1e-9)
	assert.Zero(t, cfg.RequestsPerSecond)
	assert.Equal(t, 1, cfg.Burst)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("with custom host", func(t *testing.T) {
		cfg := NewConfig(WithHost("http://custom:8080/v1"))

		assert.Equal(t, "http://custom:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://custom:8080/v1", cfg.ChatHost)
	})

	t.Run("with separate hosts", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingHost("http://embed:8080/v1"),
			WithChatHost("http://chat:9090/v1"),
		)

		assert.Equal(t, "http://embed:8080/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://chat:9090/v1", cfg.ChatHost)
	})

	t.Run("with multiple options", func(t *testing.T) {
		cfg := NewConfig(
			WithEmbeddingModel("text-embedding-3-small"),
			WithChatModel("gpt-4o-mini"),
			WithAPIKey("sk-test"),
			WithTemperature(0.3),
			WithRateLimit(2.5, 4),
		)

		assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
		assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
		assert.Equal(t, "sk-test", cfg.APIKey)
		assert.InDelta(t, 0.3, cfg.Temperature, 1e-9)
		assert.InDelta(t, 2.5, cfg.RequestsPerSecond, 1e-9)
		assert.Equal(t, 4, cfg.Burst)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name         string
		host         string
		expectedHost string
	}{
		{"already has /v1", "http://localhost:11434/v1", "http://localhost:11434/v1"},
		{"missing /v1", "http://localhost:11434", "http://localhost:11434/v1"},
		{"has trailing slash", "http://localhost:11434/", "http://localhost:11434/v1"},
		{"empty host", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{EmbeddingHost: tt.host, ChatHost: tt.host}
			cfg.Normalize()

			assert.Equal(t, tt.expectedHost, cfg.EmbeddingHost)
			assert.Equal(t, tt.expectedHost, cfg.ChatHost)
		})
	}

	t.Run("fills key and burst", func(t *testing.T) {
		cfg := &Config{}
		cfg.Normalize()
		assert.Equal(t, "none", cfg.APIKey)
		assert.Equal(t, 1, cfg.Burst)
	})
}

func TestConfigValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			EmbeddingHost:  "http://localhost:11434",
			ChatHost:       "http://localhost:11434",
			EmbeddingModel: "embeddinggemma",
			ChatModel:      "qwen2.5:3b",
			Temperature:    0.1,
		}
	}

	t.Run("valid config", func(t *testing.T) {
		cfg := valid()
		require.NoError(t, cfg.Validate())

		// Should also normalize
		assert.Equal(t, "http://localhost:11434/v1", cfg.EmbeddingHost)
		assert.Equal(t, "http://localhost:11434/v1", cfg.ChatHost)
	})

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"missing embedding host", func(c *Config) { c.EmbeddingHost = "" }, "EmbeddingHost"},
		{"missing chat host", func(c *Config) { c.ChatHost = "" }, "ChatHost"},
		{"missing embedding model", func(c *Config) { c.EmbeddingModel = "" }, "EmbeddingModel"},
		{"missing chat model", func(c *Config) { c.ChatModel = "" }, "ChatModel"},
		{"temperature too low", func(c *Config) { c.Temperature = -0.1 }, "Temperature"},
		{"temperature too high", func(c *Config) { c.Temperature = 2.5 }, "Temperature"},
		{"negative rate", func(c *Config) { c.RequestsPerSecond = -1 }, "RequestsPerSecond"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("temperature at boundaries", func(t *testing.T) {
		cfg := valid()
		cfg.Temperature = 0
		assert.NoError(t, cfg.Validate())
		cfg.Temperature = 2
		assert.NoError(t, cfg.Validate())
	})
}

func TestJoinSummaries(t *testing.T) {
	assert.Equal(t, "a\n---\nb\n---\nc", JoinSummaries([]string{"a", "b", "c"}))
	assert.Equal(t, "only", JoinSummaries([]string{"only"}))
	assert.Equal(t, "", JoinSummaries(nil))
}
