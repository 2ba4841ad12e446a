package config

import (
	"os"
	"strconv"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	StrategyEmbedded = "embedded"
	StrategyRender   = "render"
)

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type Config struct {
	PostgresDSN string
	HTTPAddr    string

	// StorageDir holds uploaded document bytes and extracted page images.
	StorageDir string

	// ImageStrategy selects how page images are produced: "embedded" walks
	// the PDF's image XObjects, "render" rasterizes whole pages.
	ImageStrategy string
	RenderDPI     int

	ChunkSize int

	Embeddings EmbeddingConfig

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func Load() Config {
	return Config{
		PostgresDSN:   getEnv("POSTGRES_DSN", "postgres://localhost:5432/docpipe?sslmode=disable"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		StorageDir:    getEnv("STORAGE_DIR", "./data"),
		ImageStrategy: getEnv("IMAGE_STRATEGY", StrategyEmbedded),
		RenderDPI:     getEnvInt("RENDER_DPI", 300),
		ChunkSize:     getEnvInt("CHUNK_SIZE", 1000),
		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOllama),
			Model:     getEnv("EMBEDDINGS_MODEL", "all-minilm"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 384),
		},
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
