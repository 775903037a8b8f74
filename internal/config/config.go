// Package config loads server configuration from defaults, an optional TOML
// file, and environment variable overrides, in that order.
package config

import (
	"os"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Index     IndexConfig     `toml:"index"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Router    RouterConfig    `toml:"router"`
	Local     LocalConfig     `toml:"local"`
	Azure     AzureConfig     `toml:"azure"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Registry  RegistryConfig  `toml:"registry"`
	Observer  ObserverConfig  `toml:"observer"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

type IndexConfig struct {
	Dir  string `toml:"dir"`
	TopK int    `toml:"top_k"`
}

type ChunkingConfig struct {
	ChunkSize int `toml:"chunk_size"`
	Overlap   int `toml:"overlap"`
}

type RouterConfig struct {
	WordLimit int `toml:"word_limit"`
}

type LocalConfig struct {
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

type AzureConfig struct {
	Endpoint    string  `toml:"endpoint"`
	Deployment  string  `toml:"deployment"`
	APIVersion  string  `toml:"api_version"`
	APIKey      string  `toml:"api_key"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
}

type EmbeddingConfig struct {
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`
	APIKey     string `toml:"api_key"`
	BaseURL    string `toml:"base_url"`
}

type RegistryConfig struct {
	Path string `toml:"path"`
}

type ObserverConfig struct {
	Enabled bool                       `toml:"enabled"`
	Pricing map[string]ObserverPricing `toml:"pricing"`
}

type ObserverPricing struct {
	Input  float64 `toml:"input"`
	Output float64 `toml:"output"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Server:    ServerConfig{Addr: ":8000"},
		Index:     IndexConfig{Dir: "vector_db", TopK: 3},
		Chunking:  ChunkingConfig{ChunkSize: 1000, Overlap: 200},
		Router:    RouterConfig{WordLimit: 20},
		Local:     LocalConfig{BaseURL: "http://localhost:11434", Model: "tinyllama", MaxTokens: 512, Temperature: 0.7},
		Azure:     AzureConfig{APIVersion: "2023-05-15", MaxTokens: 1024, Temperature: 0.7},
		Embedding: EmbeddingConfig{Model: "text-embedding-3-small"},
		Registry:  RegistryConfig{Path: "tandem.db"},
	}
}

// Load reads config: defaults -> TOML file -> env vars (env wins).
func Load(path string) Config {
	cfg := Default()

	if path == "" {
		path = "tandem.toml"
	}

	if data, err := os.ReadFile(path); err == nil {
		_ = toml.Unmarshal(data, &cfg)
	}

	// Env overrides
	if v := os.Getenv("TANDEM_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TANDEM_INDEX_DIR"); v != "" {
		cfg.Index.Dir = v
	}
	if v := os.Getenv("TANDEM_REGISTRY_PATH"); v != "" {
		cfg.Registry.Path = v
	}
	if v := os.Getenv("AZURE_OPENAI_API_KEY"); v != "" {
		cfg.Azure.APIKey = v
	}
	if v := os.Getenv("AZURE_OPENAI_ENDPOINT"); v != "" {
		cfg.Azure.Endpoint = v
	}
	if v := os.Getenv("AZURE_OPENAI_DEPLOYMENT"); v != "" {
		cfg.Azure.Deployment = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("TANDEM_OLLAMA_URL"); v != "" {
		cfg.Local.BaseURL = v
	}
	if v := os.Getenv("TANDEM_LOCAL_MODEL"); v != "" {
		cfg.Local.Model = v
	}
	if os.Getenv("TANDEM_OBSERVER_ENABLED") == "true" || os.Getenv("TANDEM_OBSERVER_ENABLED") == "1" {
		cfg.Observer.Enabled = true
	}

	// Fallbacks
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = cfg.Azure.APIKey
	}

	return cfg
}
