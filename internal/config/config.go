package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	APIPort   string `yaml:"api_port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ObjectStore    string `yaml:"object_store"`
	MinIOEndpoint  string `yaml:"minio_endpoint"`
	MinIOAccessKey string `yaml:"minio_access_key"`
	MinIOSecretKey string `yaml:"minio_secret_key"`
	MinIOUseSSL    bool   `yaml:"minio_use_ssl"`
	BucketName     string `yaml:"bucket_name"`
	StoragePath    string `yaml:"storage_path"`

	MetadataBackend string `yaml:"metadata_backend"`
	MetadataKey     string `yaml:"metadata_key"`
	// MetadataShared re-reads the persisted index around every access, for
	// deployments where the API and backfill -watch write the same index.
	MetadataShared bool   `yaml:"metadata_shared"`
	PostgresDSN    string `yaml:"postgres_dsn"`

	InferenceProvider string `yaml:"inference_provider"`
	OllamaURL         string `yaml:"ollama_url"`
	OllamaModel       string `yaml:"ollama_model"`

	OpenRouterURL     string `yaml:"openrouter_url"`
	OpenRouterAPIKey  string `yaml:"openrouter_api_key"`
	OpenRouterModel   string `yaml:"openrouter_model"`
	OpenRouterAppURL  string `yaml:"openrouter_app_url"`
	OpenRouterAppName string `yaml:"openrouter_app_name"`

	ClassifyTimeoutSeconds  int  `yaml:"classify_timeout_seconds"`
	SummarizeTimeoutSeconds int  `yaml:"summarize_timeout_seconds"`
	SummaryMaxChars         int  `yaml:"summary_max_chars"`
	SummaryPersist          bool `yaml:"summary_persist"`
	InferenceBreakerEnabled bool `yaml:"inference_breaker_enabled"`

	RedisURL               string `yaml:"redis_url"`
	SummaryCacheTTLSeconds int    `yaml:"summary_cache_ttl_seconds"`

	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`

	MaxUploadBytes        int64 `yaml:"max_upload_bytes"`
	APIRateLimitRPS       int   `yaml:"api_rate_limit_rps"`
	APIRateLimitBurst     int   `yaml:"api_rate_limit_burst"`
	APIMaxInFlight        int   `yaml:"api_max_in_flight"`
	APIBackpressureWaitMS int   `yaml:"api_backpressure_wait_ms"`

	MCPEnabled bool `yaml:"mcp_enabled"`
}

func Defaults() Config {
	return Config{
		APIPort:   "8080",
		LogLevel:  "info",
		LogFormat: "json",

		ObjectStore:   "minio",
		MinIOEndpoint: "localhost:9000",
		BucketName:    "user-files",
		StoragePath:   "./data/storage",

		MetadataBackend: "object",
		MetadataKey:     "metadata.json",
		MetadataShared:  true,

		InferenceProvider: "openrouter",
		OllamaURL:         "http://localhost:11434",
		OllamaModel:       "llama3.1:8b",

		OpenRouterURL:     "https://openrouter.ai/api/v1",
		OpenRouterModel:   "mistralai/mistral-7b-instruct",
		OpenRouterAppName: "Smart File Explorer",

		ClassifyTimeoutSeconds:  30,
		SummarizeTimeoutSeconds: 60,
		SummaryMaxChars:         4000,
		SummaryPersist:          false,
		InferenceBreakerEnabled: true,

		SummaryCacheTTLSeconds: 3600,

		NATSSubject: "files.events",

		MaxUploadBytes:        100 << 20,
		APIRateLimitRPS:       0,
		APIRateLimitBurst:     20,
		APIMaxInFlight:        64,
		APIBackpressureWaitMS: 250,
	}
}

// Load applies defaults, then the YAML file named by CONFIG_FILE, then environment variables.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.APIPort = mustEnv("API_PORT", cfg.APIPort)
	cfg.LogLevel = mustEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = mustEnv("LOG_FORMAT", cfg.LogFormat)

	cfg.ObjectStore = mustEnv("OBJECT_STORE", cfg.ObjectStore)
	cfg.MinIOEndpoint = mustEnv("MINIO_ENDPOINT", cfg.MinIOEndpoint)
	cfg.MinIOAccessKey = mustEnv("MINIO_ACCESS_KEY", cfg.MinIOAccessKey)
	cfg.MinIOSecretKey = mustEnv("MINIO_SECRET_KEY", cfg.MinIOSecretKey)
	cfg.MinIOUseSSL = mustEnvBool("MINIO_USE_SSL", cfg.MinIOUseSSL)
	cfg.BucketName = mustEnv("BUCKET_NAME", cfg.BucketName)
	cfg.StoragePath = mustEnv("STORAGE_PATH", cfg.StoragePath)

	cfg.MetadataBackend = mustEnv("METADATA_BACKEND", cfg.MetadataBackend)
	cfg.MetadataKey = mustEnv("METADATA_KEY", cfg.MetadataKey)
	cfg.MetadataShared = mustEnvBool("METADATA_SHARED", cfg.MetadataShared)
	cfg.PostgresDSN = mustEnv("POSTGRES_DSN", cfg.PostgresDSN)

	cfg.InferenceProvider = mustEnv("INFERENCE_PROVIDER", cfg.InferenceProvider)
	cfg.OllamaURL = mustEnv("OLLAMA_URL", cfg.OllamaURL)
	cfg.OllamaModel = mustEnv("OLLAMA_MODEL", cfg.OllamaModel)

	cfg.OpenRouterURL = mustEnv("OPENROUTER_URL", cfg.OpenRouterURL)
	cfg.OpenRouterAPIKey = mustEnv("OPENROUTER_API_KEY", cfg.OpenRouterAPIKey)
	cfg.OpenRouterModel = mustEnv("OPENROUTER_MODEL", cfg.OpenRouterModel)
	cfg.OpenRouterAppURL = mustEnv("OPENROUTER_APP_URL", cfg.OpenRouterAppURL)
	cfg.OpenRouterAppName = mustEnv("OPENROUTER_APP_NAME", cfg.OpenRouterAppName)

	cfg.ClassifyTimeoutSeconds = mustEnvInt("CLASSIFY_TIMEOUT_SECONDS", cfg.ClassifyTimeoutSeconds)
	cfg.SummarizeTimeoutSeconds = mustEnvInt("SUMMARIZE_TIMEOUT_SECONDS", cfg.SummarizeTimeoutSeconds)
	cfg.SummaryMaxChars = mustEnvInt("SUMMARY_MAX_CHARS", cfg.SummaryMaxChars)
	cfg.SummaryPersist = mustEnvBool("SUMMARY_PERSIST", cfg.SummaryPersist)
	cfg.InferenceBreakerEnabled = mustEnvBool("INFERENCE_BREAKER_ENABLED", cfg.InferenceBreakerEnabled)

	cfg.RedisURL = mustEnv("REDIS_URL", cfg.RedisURL)
	cfg.SummaryCacheTTLSeconds = mustEnvInt("SUMMARY_CACHE_TTL_SECONDS", cfg.SummaryCacheTTLSeconds)

	cfg.NATSURL = mustEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubject = mustEnv("NATS_SUBJECT", cfg.NATSSubject)

	cfg.MaxUploadBytes = mustEnvInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.APIRateLimitRPS = mustEnvInt("API_RATE_LIMIT_RPS", cfg.APIRateLimitRPS)
	cfg.APIRateLimitBurst = mustEnvInt("API_RATE_LIMIT_BURST", cfg.APIRateLimitBurst)
	cfg.APIMaxInFlight = mustEnvInt("API_MAX_IN_FLIGHT", cfg.APIMaxInFlight)
	cfg.APIBackpressureWaitMS = mustEnvInt("API_BACKPRESSURE_WAIT_MS", cfg.APIBackpressureWaitMS)

	cfg.MCPEnabled = mustEnvBool("MCP_ENABLED", cfg.MCPEnabled)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) ClassifyTimeout() time.Duration {
	return time.Duration(c.ClassifyTimeoutSeconds) * time.Second
}

func (c Config) SummarizeTimeout() time.Duration {
	return time.Duration(c.SummarizeTimeoutSeconds) * time.Second
}

func (c Config) SummaryCacheTTL() time.Duration {
	return time.Duration(c.SummaryCacheTTLSeconds) * time.Second
}

func (c Config) BackpressureWait() time.Duration {
	return time.Duration(c.APIBackpressureWaitMS) * time.Millisecond
}

// InferenceModel is the model name sent to the selected provider.
func (c Config) InferenceModel() string {
	if c.InferenceProvider == "ollama" {
		return c.OllamaModel
	}
	return c.OpenRouterModel
}

func (c Config) validate() error {
	switch c.ObjectStore {
	case "minio", "localfs":
	default:
		return fmt.Errorf("OBJECT_STORE must be minio or localfs, got %q", c.ObjectStore)
	}
	switch c.MetadataBackend {
	case "object":
	case "postgres":
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required when METADATA_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("METADATA_BACKEND must be object or postgres, got %q", c.MetadataBackend)
	}
	switch c.InferenceProvider {
	case "openrouter", "ollama":
	default:
		return fmt.Errorf("INFERENCE_PROVIDER must be openrouter or ollama, got %q", c.InferenceProvider)
	}
	if c.MetadataKey == "" {
		return fmt.Errorf("METADATA_KEY must not be empty")
	}
	return nil
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
