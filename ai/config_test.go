package ai

import (
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig() is not valid: %v", err)
	}
}

func TestNewConfigOptions(t *testing.T) {
	config := NewConfig(
		WithEmbeddingHost("http://embed.internal/v1"),
		WithEmbeddingModel("text-embedding-3-small"),
		WithAPIToken("secret"),
		WithBatchSize(8),
		WithMaxRetries(5),
		WithRetryBaseDelay(time.Second),
	)

	if config.EmbeddingHost != "http://embed.internal/v1" {
		t.Errorf("EmbeddingHost = %q", config.EmbeddingHost)
	}
	if config.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("EmbeddingModel = %q", config.EmbeddingModel)
	}
	if config.APIToken != "secret" {
		t.Errorf("APIToken = %q", config.APIToken)
	}
	if config.BatchSize != 8 || config.MaxRetries != 5 || config.RetryBaseDelay != time.Second {
		t.Errorf("numeric options not applied: %+v", config)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{name: "empty host", mutate: func(c *Config) { c.EmbeddingHost = " " }},
		{name: "empty model", mutate: func(c *Config) { c.EmbeddingModel = "" }},
		{name: "zero batch size", mutate: func(c *Config) { c.BatchSize = 0 }},
		{name: "zero retries", mutate: func(c *Config) { c.MaxRetries = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Errorf("Validate() accepted invalid config")
			}
		})
	}
}
