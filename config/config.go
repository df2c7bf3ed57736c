// Copyright 2025 Fred Agent Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the application configuration from YAML: store
// location, embedding backend settings, splitter tuning and processor
// routing overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// StoreConfig locates the backing database.
type StoreConfig struct {
	// Path to the database directory. Ignored when InMemory is set.
	Path string `yaml:"path"`
	// InMemory runs the stores without persistence, for tests and demos.
	InMemory bool `yaml:"in_memory"`
}

// EmbeddingConfig configures the OpenAI-compatible embedding backend.
type EmbeddingConfig struct {
	Host      string `yaml:"host"`
	Model     string `yaml:"model"`
	APIToken  string `yaml:"api_token"`
	BatchSize int    `yaml:"batch_size"`
}

// SplitterConfig tunes the chunking of markdown documents.
type SplitterConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// IngestionConfig tunes the write path.
type IngestionConfig struct {
	// PoolSize is the bulk ingestion worker count. 0 picks a default
	// from the CPU count.
	PoolSize int `yaml:"pool_size"`
	// OutputOverrides maps a file extension to an output processor name
	// ("vectorization", "tabular", "empty"), overriding the default
	// routing by document kind.
	OutputOverrides map[string]string `yaml:"output_overrides"`
}

// AppConfig is the root configuration structure.
type AppConfig struct {
	Store     StoreConfig     `yaml:"store"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Splitter  SplitterConfig  `yaml:"splitter"`
	Ingestion IngestionConfig `yaml:"ingestion"`
}

// OutputProcessorNames are the values accepted in OutputOverrides.
var OutputProcessorNames = []string{"vectorization", "tabular", "empty"}

// Load reads a config from path. A missing file returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Default returns the configuration used when no file exists.
func Default() *AppConfig {
	cfg := &AppConfig{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Store.Path == "" {
		cfg.Store.Path = defaultStorePath()
	}
	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = "http://localhost:11434/v1"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "embeddinggemma"
	}
	if cfg.Embedding.APIToken == "" {
		cfg.Embedding.APIToken = "none"
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = 32
	}
	if cfg.Splitter.ChunkSize <= 0 {
		cfg.Splitter.ChunkSize = 1000
	}
	if cfg.Splitter.ChunkOverlap <= 0 {
		cfg.Splitter.ChunkOverlap = 150
	}
}

func validate(cfg *AppConfig) error {
	for extension, name := range cfg.Ingestion.OutputOverrides {
		known := false
		for _, candidate := range OutputProcessorNames {
			if name == candidate {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown output processor %q for extension %q", name, extension)
		}
	}
	if cfg.Splitter.ChunkOverlap >= cfg.Splitter.ChunkSize {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d",
			cfg.Splitter.ChunkOverlap, cfg.Splitter.ChunkSize)
	}
	return nil
}

func defaultStorePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "knowledge-flow.db"
	}
	return filepath.Join(home, ".local", "share", "knowledge-flow", "db")
}
