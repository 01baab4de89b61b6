package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChunkingConfig configures how extracted text is split into chunks.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// CategoryConfig is one domain keyword category used during chunk annotation
// and query entity extraction.
type CategoryConfig struct {
	Name  string   `yaml:"name"`
	Terms []string `yaml:"terms"`
}

// OpenAIEmbedderConfig holds configuration for the remote embeddings client.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbedderConfig selects and configures the embedder implementation.
type EmbedderConfig struct {
	Type      string                `yaml:"type"`
	Dimension int                   `yaml:"dimension"`
	OpenAI    *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
}

// RetrievalConfig holds the hybrid search weights and limits.
type RetrievalConfig struct {
	SemanticWeight  float64 `yaml:"semantic_weight"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	Oversample      int     `yaml:"oversample"`
	MinScore        float64 `yaml:"min_score"`
	MaxContextChars int     `yaml:"max_context_chars"`
}

// GeneratorConfig configures the language-model client and the confidence
// blend used by the answer generator.
type GeneratorConfig struct {
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	Model           string  `yaml:"model"`
	TimeoutSecs     int     `yaml:"timeout_secs"`
	Temperature     float64 `yaml:"temperature"`
	MaxTokens       int     `yaml:"max_tokens"`
	RetrievalWeight float64 `yaml:"retrieval_weight"`
	QualityWeight   float64 `yaml:"quality_weight"`
}

// StorageConfig configures relational persistence. An empty path disables it.
type StorageConfig struct {
	Path string `yaml:"path"`
}

// IndexConfig configures vector index snapshots.
type IndexConfig struct {
	Path string `yaml:"path"`
}

// FetchConfig bounds remote document downloads.
type FetchConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
}

// APIConfig names the env var holding the bearer token the request-handling
// glue compares against. Resolved once at process start.
type APIConfig struct {
	TokenEnv string `yaml:"token_env"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Categories []CategoryConfig `yaml:"categories,omitempty"`
	Embedder   EmbedderConfig   `yaml:"embedder"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Generator  GeneratorConfig  `yaml:"generator"`
	Storage    StorageConfig    `yaml:"storage"`
	Index      IndexConfig      `yaml:"index"`
	Fetch      FetchConfig      `yaml:"fetch"`
	API        APIConfig        `yaml:"api"`
}

// APIToken resolves the configured bearer token from the environment.
func (c *AppConfig) APIToken() string {
	if c.API.TokenEnv == "" {
		return ""
	}
	return os.Getenv(c.API.TokenEnv)
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
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

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

// DefaultCategories are the domain keyword categories applied when the config
// lists none. They target insurance and legal policy documents.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{Name: "coverage", Terms: []string{"cover", "coverage", "covered", "include", "included", "benefit"}},
		{Name: "exclusion", Terms: []string{"exclude", "excluded", "exclusion", "not covered", "does not cover", "exception", "limitation"}},
		{Name: "deductible", Terms: []string{"deductible", "co-payment", "copay", "excess", "self-payment"}},
		{Name: "waiting_period", Terms: []string{"waiting period", "cooling period", "pre-existing", "minimum duration"}},
		{Name: "eligibility", Terms: []string{"eligible", "eligibility", "qualify", "qualification", "criteria", "requirements"}},
		{Name: "limit", Terms: []string{"maximum", "limit", "cap", "not exceeding", "ceiling", "up to"}},
	}
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = 1000
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = 200
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = DefaultCategories()
	}
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "hashing"
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
	}
	if cfg.Retrieval.SemanticWeight == 0 {
		cfg.Retrieval.SemanticWeight = 0.7
	}
	if cfg.Retrieval.KeywordWeight == 0 {
		cfg.Retrieval.KeywordWeight = 0.3
	}
	if cfg.Retrieval.Oversample == 0 {
		cfg.Retrieval.Oversample = 2
	}
	if cfg.Retrieval.MinScore == 0 {
		cfg.Retrieval.MinScore = 0.3
	}
	if cfg.Retrieval.MaxContextChars == 0 {
		cfg.Retrieval.MaxContextChars = 6000
	}
	if cfg.Generator.BaseURL == "" {
		cfg.Generator.BaseURL = "https://api.mistral.ai/v1"
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = "MISTRAL_API_KEY"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "mistral-large-latest"
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = 60
	}
	if cfg.Generator.Temperature == 0 {
		cfg.Generator.Temperature = 0.1
	}
	if cfg.Generator.MaxTokens == 0 {
		cfg.Generator.MaxTokens = 1000
	}
	if cfg.Generator.RetrievalWeight == 0 {
		cfg.Generator.RetrievalWeight = 0.6
	}
	if cfg.Generator.QualityWeight == 0 {
		cfg.Generator.QualityWeight = 0.4
	}
	if cfg.Index.Path == "" {
		cfg.Index.Path = "index.json"
	}
	if cfg.Fetch.TimeoutSecs == 0 {
		cfg.Fetch.TimeoutSecs = 30
	}
	if cfg.API.TokenEnv == "" {
		cfg.API.TokenEnv = "DOCQA_API_TOKEN"
	}
}
