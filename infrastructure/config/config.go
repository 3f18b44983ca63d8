package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string
	ConfigFile    string

	// Logging
	LogLevel string

	// Relational store
	DatabaseDriver string
	DatabaseDSN    string

	// Semantic index
	VectorBackend    string // chromem | pgvector
	VectorPersistDir string

	// Embeddings
	EmbeddingProvider   string // openai | hash
	EmbeddingModel      string
	EmbeddingDimensions int
	EmbeddingBaseURL    string
	EmbeddingAPIKey     string

	// Reranker
	RerankEnabled bool
	RerankBaseURL string
	RerankModel   string
	RerankAPIKey  string

	// Completion
	LLMProvider   string // openai | anthropic
	LLMBaseURL    string
	LLMAPIKey     string
	LLMMaxTokens  int
	LLMMaxRetries int

	// Authentication
	JWTSecret    string
	JWTIssuer    string
	JWTAudience  string
	JWTPublicKey string

	// HTTP surface
	CORSOrigins     []string
	UploadDir       string
	PublicBaseURL   string
	MaxRequestBytes int64

	// AWS configuration
	AWSRegion      string
	EventBusName   string
	RateLimitTable string
	LockTable      string

	// Lambda configuration
	IsLambda bool

	// Index repair
	MetricsSink     string // prometheus | cloudwatch
	RepairInterval  time.Duration
	RepairBatchSize int
	RepairMaxTries  int

	// Feature flags
	EnableTracing bool
	EnableCORS    bool
}

// defaults mirrors the keys a deployment can override
var defaults = map[string]interface{}{
	"SERVER_ADDRESS":       ":8080",
	"ENVIRONMENT":          "development",
	"LOG_LEVEL":            "info",
	"DATABASE_DRIVER":      "sqlite",
	"DATABASE_DSN":         "file:neuronote.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	"VECTOR_BACKEND":       "chromem",
	"VECTOR_PERSIST_DIR":   "",
	"EMBEDDING_PROVIDER":   "openai",
	"EMBEDDING_MODEL":      "mistral-embed",
	"EMBEDDING_DIMENSIONS": 1024,
	"EMBEDDING_BASE_URL":   "https://api.mistral.ai/v1",
	"EMBEDDING_API_KEY":    "",
	"RERANK_ENABLED":       false,
	"RERANK_BASE_URL":      "",
	"RERANK_MODEL":         "bge-reranker-v2-m3",
	"RERANK_API_KEY":       "",
	"LLM_PROVIDER":         "openai",
	"LLM_BASE_URL":         "https://api.mistral.ai/v1",
	"LLM_API_KEY":          "",
	"LLM_MAX_TOKENS":       1024,
	"LLM_MAX_RETRIES":      3,
	"JWT_SECRET":           "",
	"JWT_ISSUER":           "",
	"JWT_AUDIENCE":         "",
	"JWT_PUBLIC_KEY":       "",
	"CORS_ORIGINS":         "http://localhost:3000",
	"UPLOAD_DIR":           "uploads",
	"PUBLIC_BASE_URL":      "http://localhost:8080",
	"MAX_REQUEST_BYTES":    1 << 20,
	"AWS_REGION":           "us-west-2",
	"EVENT_BUS_NAME":       "",
	"RATE_LIMIT_TABLE":     "",
	"LOCK_TABLE":           "",
	"IS_LAMBDA":            false,
	"METRICS_SINK":         "prometheus",
	"REPAIR_INTERVAL":      "30s",
	"REPAIR_BATCH_SIZE":    25,
	"REPAIR_MAX_TRIES":     8,
	"ENABLE_TRACING":       false,
	"ENABLE_CORS":          true,

	"RAG_TOP_K":           20,
	"RAG_TOP_N":           5,
	"RAG_RELEVANCE_FLOOR": 0.2,
	"RAG_HISTORY_WINDOW":  10,
	"RAG_QUERY_LIMIT":     5,
	"RAG_TIMEOUT":         "60s",
	"LLM_MODEL":           "mistral-large-latest",
}

// newViper builds a viper instance reading plain environment variables and,
// when CONFIG_FILE is set, a YAML file with the same keys.
func newViper() (*viper.Viper, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file := v.GetString("CONFIG_FILE"); file != "" {
		v.SetConfigFile(file)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", file, err)
		}
	}
	return v, nil
}

// LoadConfig loads configuration from the environment and optional config file
func LoadConfig() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	cfg := fromViper(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ServerAddress: v.GetString("SERVER_ADDRESS"),
		Environment:   v.GetString("ENVIRONMENT"),
		ConfigFile:    v.GetString("CONFIG_FILE"),
		LogLevel:      v.GetString("LOG_LEVEL"),

		DatabaseDriver: strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseDSN:    v.GetString("DATABASE_DSN"),

		VectorBackend:    strings.ToLower(v.GetString("VECTOR_BACKEND")),
		VectorPersistDir: v.GetString("VECTOR_PERSIST_DIR"),

		EmbeddingProvider:   strings.ToLower(v.GetString("EMBEDDING_PROVIDER")),
		EmbeddingModel:      v.GetString("EMBEDDING_MODEL"),
		EmbeddingDimensions: v.GetInt("EMBEDDING_DIMENSIONS"),
		EmbeddingBaseURL:    v.GetString("EMBEDDING_BASE_URL"),
		EmbeddingAPIKey:     v.GetString("EMBEDDING_API_KEY"),

		RerankEnabled: v.GetBool("RERANK_ENABLED"),
		RerankBaseURL: v.GetString("RERANK_BASE_URL"),
		RerankModel:   v.GetString("RERANK_MODEL"),
		RerankAPIKey:  v.GetString("RERANK_API_KEY"),

		LLMProvider:   strings.ToLower(v.GetString("LLM_PROVIDER")),
		LLMBaseURL:    v.GetString("LLM_BASE_URL"),
		LLMAPIKey:     v.GetString("LLM_API_KEY"),
		LLMMaxTokens:  v.GetInt("LLM_MAX_TOKENS"),
		LLMMaxRetries: v.GetInt("LLM_MAX_RETRIES"),

		JWTSecret:    v.GetString("JWT_SECRET"),
		JWTIssuer:    v.GetString("JWT_ISSUER"),
		JWTAudience:  v.GetString("JWT_AUDIENCE"),
		JWTPublicKey: v.GetString("JWT_PUBLIC_KEY"),

		CORSOrigins:     splitList(v.GetString("CORS_ORIGINS")),
		UploadDir:       v.GetString("UPLOAD_DIR"),
		PublicBaseURL:   strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/"),
		MaxRequestBytes: v.GetInt64("MAX_REQUEST_BYTES"),

		AWSRegion:      v.GetString("AWS_REGION"),
		EventBusName:   v.GetString("EVENT_BUS_NAME"),
		RateLimitTable: v.GetString("RATE_LIMIT_TABLE"),
		LockTable:      v.GetString("LOCK_TABLE"),

		IsLambda: v.GetBool("IS_LAMBDA") || v.GetString("AWS_LAMBDA_FUNCTION_NAME") != "",

		MetricsSink:     strings.ToLower(v.GetString("METRICS_SINK")),
		RepairInterval:  v.GetDuration("REPAIR_INTERVAL"),
		RepairBatchSize: v.GetInt("REPAIR_BATCH_SIZE"),
		RepairMaxTries:  v.GetInt("REPAIR_MAX_TRIES"),

		EnableTracing: v.GetBool("ENABLE_TRACING"),
		EnableCORS:    v.GetBool("ENABLE_CORS"),
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	switch c.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.DatabaseDriver)
	}
	switch c.VectorBackend {
	case "chromem":
	case "pgvector":
		if c.DatabaseDriver != "postgres" {
			return fmt.Errorf("VECTOR_BACKEND=pgvector requires DATABASE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("unsupported VECTOR_BACKEND %q", c.VectorBackend)
	}
	switch c.LLMProvider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive")
	}

	if c.IsProduction() {
		if c.JWTSecret == "" && c.JWTPublicKey == "" {
			return fmt.Errorf("JWT_SECRET or JWT_PUBLIC_KEY is required in production")
		}
		if c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required in production")
		}
		if c.EmbeddingProvider != "openai" {
			return fmt.Errorf("EMBEDDING_PROVIDER must be openai in production")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
