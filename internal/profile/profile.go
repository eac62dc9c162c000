package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration for one ragtable process. It is loaded once
// at startup and passed into constructors; there is no process-wide mutable
// configuration.
type Profile struct {
	Mode    string // prod, dev
	Data    string // data directory (sqlite database lives here)
	Driver  string // postgres, sqlite
	DSN     string
	Version string

	// Embedding configuration
	EmbeddingProvider   string
	EmbeddingModel      string
	EmbeddingAPIKey     string
	EmbeddingBaseURL    string
	EmbeddingDimensions int

	// Generation (LLM) configuration
	LLMProvider    string
	LLMModel       string
	LLMAPIKey      string
	LLMBaseURL     string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     int // seconds

	// Reranker configuration
	RerankModel   string
	RerankAPIKey  string
	RerankBaseURL string

	// Chunking configuration. ChunkMaxTokens bounds individual chunk
	// length; ContextMaxTokens bounds what the tokenizer accepts. The two
	// are independent knobs.
	ChunkMaxTokens   int
	ContextMaxTokens int
}

// Providers that the generation service can dispatch to.
var llmProviders = map[string]bool{
	"azure":       true,
	"cerebras":    true,
	"openai":      true,
	"deepseek":    true,
	"siliconflow": true,
	"ollama":      true,
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvOrDefaultFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.EmbeddingProvider = getEnvOrDefault("RAGTABLE_EMBEDDING_PROVIDER", "openai")
	p.EmbeddingModel = getEnvOrDefault("RAGTABLE_EMBEDDING_MODEL", "text-embedding-3-small")
	p.EmbeddingAPIKey = getEnvOrDefault("RAGTABLE_EMBEDDING_API_KEY", "")
	p.EmbeddingBaseURL = getEnvOrDefault("RAGTABLE_EMBEDDING_BASE_URL", "")
	p.EmbeddingDimensions = getEnvOrDefaultInt("RAGTABLE_EMBEDDING_DIMENSIONS", 1536)

	p.LLMProvider = getEnvOrDefault("RAGTABLE_LLM_PROVIDER", "openai")
	p.LLMModel = getEnvOrDefault("RAGTABLE_LLM_MODEL", "gpt-4o-mini")
	p.LLMAPIKey = getEnvOrDefault("RAGTABLE_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("RAGTABLE_LLM_BASE_URL", "")
	p.LLMMaxTokens = getEnvOrDefaultInt("RAGTABLE_LLM_MAX_TOKENS", 2048)
	p.LLMTemperature = getEnvOrDefaultFloat("RAGTABLE_LLM_TEMPERATURE", 0.5)
	p.LLMTimeout = getEnvOrDefaultInt("RAGTABLE_LLM_TIMEOUT_SECONDS", 120)

	p.RerankModel = getEnvOrDefault("RAGTABLE_RERANK_MODEL", "rerank-v3.5")
	p.RerankAPIKey = getEnvOrDefault("RAGTABLE_RERANK_API_KEY", "")
	p.RerankBaseURL = getEnvOrDefault("RAGTABLE_RERANK_BASE_URL", "https://api.cohere.com")

	p.ChunkMaxTokens = getEnvOrDefaultInt("RAGTABLE_CHUNK_MAX_TOKENS", 8192)
	p.ContextMaxTokens = getEnvOrDefaultInt("RAGTABLE_CONTEXT_MAX_TOKENS", 128*1024)
}

// Validate checks the profile and fills derived defaults. Configuration
// errors are fatal; callers should not retry.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		p.Mode = "dev"
	}

	if p.Driver != "postgres" && p.Driver != "sqlite" {
		return errors.Errorf("unsupported database driver: %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	if !llmProviders[p.LLMProvider] {
		return errors.Errorf("unsupported generation provider: %q", p.LLMProvider)
	}
	if p.EmbeddingDimensions <= 0 {
		return errors.Errorf("invalid embedding dimensions: %d", p.EmbeddingDimensions)
	}
	if p.ChunkMaxTokens <= 0 || p.ChunkMaxTokens > p.ContextMaxTokens {
		return errors.Errorf("invalid chunk token budget: chunk=%d, context=%d", p.ChunkMaxTokens, p.ContextMaxTokens)
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("ragtable_%s.db", p.Mode)
		p.DSN = filepath.Join(p.Data, dbFile)
	}
	return nil
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

func checkDataDir(dataDir string) (string, error) {
	if dataDir == "" {
		dataDir = "."
	}
	// Convert to absolute path if a relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		absDir, err := filepath.Abs(dataDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}
