package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	EmbedLLM LLMConfig      `yaml:"embed_llm"`
	RAG      RAGConfig      `yaml:"rag"`
	Agent    AgentConfig    `yaml:"agent"`
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

type ServerConfig struct {
	Address           string   `yaml:"address" validate:"required"`
	UploadDir         string   `yaml:"upload_dir" validate:"required"`
	AllowedOrigins    []string `yaml:"allowed_origins"`
	AllowedExtensions []string `yaml:"allowed_extensions" validate:"min=1,dive,startswith=."`
	MaxUploadMB       int      `yaml:"max_upload_mb" validate:"gt=0"`
	GinMode           string   `yaml:"gin_mode" validate:"oneof=debug release test"`
}

// LLMConfig is shared by the chat model and the embedding model.
type LLMConfig struct {
	Provider    string        `yaml:"provider" validate:"oneof=ollama openai"`
	BaseURL     string        `yaml:"base_url"`
	Key         string        `yaml:"key"`
	Model       string        `yaml:"model" validate:"required"`
	Temperature float64       `yaml:"temperature" validate:"gte=0,lte=2"`
	CallTimeout time.Duration `yaml:"call_timeout" validate:"gt=0"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`
}

type RAGConfig struct {
	ChunkSize    int  `yaml:"chunk_size" validate:"gt=0"`
	ChunkOverlap int  `yaml:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	MinPageChars int  `yaml:"min_page_chars" validate:"gte=0"`
	MemoryDepth  int  `yaml:"memory_depth" validate:"gt=0"`
	DefaultLastN int  `yaml:"default_last_n" validate:"gt=0"`
	MaxLastN     int  `yaml:"max_last_n" validate:"gtefield=DefaultLastN"`
	SearchTopK   int  `yaml:"search_top_k" validate:"gt=0"`
	FallbackTopK int  `yaml:"fallback_top_k" validate:"gt=0"`
	HistoryDump  bool `yaml:"history_dump"`
}

type AgentConfig struct {
	MaxIterations    int           `yaml:"max_iterations" validate:"gt=0"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" validate:"gt=0"`
}

type DatabaseConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn" validate:"required_if=Enabled true"`
	Debug   bool   `yaml:"debug"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"oneof=trace debug info warn error"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Address:           ":8000",
			UploadDir:         "uploads",
			AllowedOrigins:    []string{"*"},
			AllowedExtensions: []string{".pdf"},
			MaxUploadMB:       50,
			GinMode:           "release",
		},
		LLM: LLMConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "phi3",
			Temperature: 0,
			CallTimeout: 60 * time.Second,
		},
		EmbedLLM: LLMConfig{
			Provider:    "ollama",
			BaseURL:     "http://localhost:11434",
			Model:       "all-minilm",
			CallTimeout: 60 * time.Second,
			CacheTTL:    10 * time.Minute,
		},
		RAG: RAGConfig{
			ChunkSize:    400,
			ChunkOverlap: 75,
			MinPageChars: 20,
			MemoryDepth:  50,
			DefaultLastN: 30,
			MaxLastN:     100,
			SearchTopK:   1,
			FallbackTopK: 3,
		},
		Agent: AgentConfig{
			MaxIterations:    4,
			MaxExecutionTime: 15 * time.Second,
		},
		Log: LogConfig{
			Level:      "debug",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}

// LoadConfig reads the YAML file at path on top of the defaults, applies
// PDFCHAT_* environment overrides and validates the result. A missing file
// is not an error.
func LoadConfig(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to decode config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	overrideByEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

func overrideByEnv(cfg *Config) {
	cfg.Server.Address = getEnv("PDFCHAT_ADDRESS", cfg.Server.Address)
	cfg.Server.UploadDir = getEnv("PDFCHAT_UPLOAD_DIR", cfg.Server.UploadDir)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)

	cfg.LLM.Provider = getEnv("PDFCHAT_LLM_PROVIDER", cfg.LLM.Provider)
	cfg.LLM.BaseURL = getEnv("PDFCHAT_LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Key = getEnv("PDFCHAT_LLM_KEY", cfg.LLM.Key)
	cfg.LLM.Model = getEnv("PDFCHAT_LLM_MODEL", cfg.LLM.Model)

	cfg.EmbedLLM.Provider = getEnv("PDFCHAT_EMBED_PROVIDER", cfg.EmbedLLM.Provider)
	cfg.EmbedLLM.BaseURL = getEnv("PDFCHAT_EMBED_BASE_URL", cfg.EmbedLLM.BaseURL)
	cfg.EmbedLLM.Key = getEnv("PDFCHAT_EMBED_KEY", cfg.EmbedLLM.Key)
	cfg.EmbedLLM.Model = getEnv("PDFCHAT_EMBED_MODEL", cfg.EmbedLLM.Model)

	cfg.RAG.MemoryDepth = getEnvAsInt("PDFCHAT_MEMORY_DEPTH", cfg.RAG.MemoryDepth)
	cfg.Agent.MaxIterations = getEnvAsInt("PDFCHAT_AGENT_MAX_ITERATIONS", cfg.Agent.MaxIterations)

	if v, ok := os.LookupEnv("PDFCHAT_DATABASE_DSN"); ok && v != "" {
		cfg.Database.DSN = v
		cfg.Database.Enabled = true
	}
	cfg.Log.Level = strings.ToLower(getEnv("PDFCHAT_LOG_LEVEL", cfg.Log.Level))
	cfg.Log.File = getEnv("PDFCHAT_LOG_FILE", cfg.Log.File)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return parsed
}
