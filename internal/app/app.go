// Package app assembles the pipeline from configuration. Both binaries go
// through it so they agree on how components are wired.
package app

import (
	"fmt"
	"time"

	"docqa/internal/analyzer"
	"docqa/internal/config"
	"docqa/internal/domain"
	"docqa/internal/embedding/hashing"
	"docqa/internal/embedding/openai"
	"docqa/internal/generator"
	"docqa/internal/logger"
	"docqa/internal/processor"
	"docqa/internal/retrieval"
	"docqa/internal/service"
	"docqa/internal/storage/sqlite"
	"docqa/internal/vectorstore"
)

// Build constructs the service from the config: embedder, vector index,
// retrieval engine, generator and optional SQLite persistence.
func Build(log *logger.Logger, cfg *config.AppConfig) (*service.Service, error) {
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	index := vectorstore.New(embedder)
	engine := retrieval.New(index, retrieval.Config{
		SemanticWeight:  cfg.Retrieval.SemanticWeight,
		KeywordWeight:   cfg.Retrieval.KeywordWeight,
		Oversample:      cfg.Retrieval.Oversample,
		MinScore:        cfg.Retrieval.MinScore,
		MaxContextChars: cfg.Retrieval.MaxContextChars,
	})

	llm, err := generator.NewChatClient(generator.ChatConfig{
		BaseURL:     cfg.Generator.BaseURL,
		APIKeyEnv:   cfg.Generator.APIKeyEnv,
		Model:       cfg.Generator.Model,
		Timeout:     time.Duration(cfg.Generator.TimeoutSecs) * time.Second,
		Temperature: cfg.Generator.Temperature,
		MaxTokens:   cfg.Generator.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("build generator: %w", err)
	}
	gen := generator.New(llm, generator.Config{
		RetrievalWeight: cfg.Generator.RetrievalWeight,
		QualityWeight:   cfg.Generator.QualityWeight,
	})

	categories := Categories(cfg.Categories)
	var store domain.Store
	if cfg.Storage.Path != "" {
		s, err := sqlite.Open(cfg.Storage.Path)
		if err != nil {
			return nil, fmt.Errorf("open storage: %w", err)
		}
		store = s
	}

	return service.New(service.Options{
		Logger:    log,
		Processor: processor.New(cfg.Chunking.Size, cfg.Chunking.Overlap, categories),
		Analyzer:  analyzer.New(categories),
		Index:     index,
		Engine:    engine,
		Generator: gen,
		Store:     store,
		FetchTime: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
	}), nil
}

func buildEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing":
		return hashing.New(cfg.Embedder.Dimension)
	case "openai":
		return openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
	default:
		return nil, fmt.Errorf("unknown embedder type %q", cfg.Embedder.Type)
	}
}

// Categories converts config categories to the processor's representation.
func Categories(cats []config.CategoryConfig) []processor.Category {
	out := make([]processor.Category, len(cats))
	for i, c := range cats {
		out[i] = processor.Category{Name: c.Name, Terms: c.Terms}
	}
	return out
}

// LoadConfig loads the config at path, or the default lookup chain when path
// is empty. It returns the path actually used.
func LoadConfig(path string) (*config.AppConfig, string, error) {
	if path != "" {
		cfg, err := config.Load(path)
		return cfg, path, err
	}
	return config.LoadDefault()
}
