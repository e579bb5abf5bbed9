// Package config loads service configuration from the environment and
// validates it before anything connects or serves.
package config

import (
	"os"
	"strconv"
	"time"
)

// Provider names accepted by SUPPORTKB_LLM_PROVIDER.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Index backend names accepted by SUPPORTKB_INDEX_BACKEND.
const (
	IndexMemory   = "memory"
	IndexPostgres = "postgres"
)

// LLM configures the completion provider shared by the rewrite and
// generation stages.
type LLM struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	Retries     int
	MaxInFlight int
}

// Embedding configures the embedder behind the index and the action
// classifier.
type Embedding struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
}

// Postgres configures the pgvector-backed index.
type Postgres struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Table    string
}

// Redis configures the optional resolution cache.
type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Mongo configures the optional resolution audit trail.
type Mongo struct {
	Enabled    bool
	URI        string
	Database   string
	Collection string
}

// Pipeline tunes the retrieval stages.
type Pipeline struct {
	InitialK            int
	RerankTopK          int
	FinalK              int
	ClassifierThreshold float64
	ContextBudget       int
	CohereAPIKey        string
}

// Config is the complete service configuration.
type Config struct {
	ListenAddr   string
	KnowledgeDir string
	IndexBackend string
	LLM          LLM
	Embedding    Embedding
	Postgres     Postgres
	Redis        Redis
	Mongo        Mongo
	Pipeline     Pipeline
}

// FromEnv builds a Config from SUPPORTKB_* environment variables, falling
// back to local-development defaults.
func FromEnv() *Config {
	return &Config{
		ListenAddr:   envString("SUPPORTKB_LISTEN_ADDR", ":8080"),
		KnowledgeDir: envString("SUPPORTKB_KNOWLEDGE_DIR", "data"),
		IndexBackend: envString("SUPPORTKB_INDEX_BACKEND", IndexMemory),
		LLM: LLM{
			Provider:    envString("SUPPORTKB_LLM_PROVIDER", ProviderOpenAI),
			APIKey:      envString("SUPPORTKB_LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL:     os.Getenv("SUPPORTKB_LLM_BASE_URL"),
			Model:       envString("SUPPORTKB_LLM_MODEL", "gpt-4o-mini"),
			Temperature: envFloat("SUPPORTKB_LLM_TEMPERATURE", 0.2),
			MaxTokens:   envInt("SUPPORTKB_LLM_MAX_TOKENS", 1024),
			Retries:     envInt("SUPPORTKB_LLM_RETRIES", 3),
			MaxInFlight: envInt("SUPPORTKB_LLM_MAX_INFLIGHT", 32),
		},
		Embedding: Embedding{
			APIKey:    envString("SUPPORTKB_EMBEDDING_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL:   os.Getenv("SUPPORTKB_EMBEDDING_BASE_URL"),
			Model:     envString("SUPPORTKB_EMBEDDING_MODEL", "text-embedding-3-small"),
			Dimension: envInt("SUPPORTKB_EMBEDDING_DIMENSION", 1536),
		},
		Postgres: Postgres{
			Host:     envString("SUPPORTKB_PG_HOST", "127.0.0.1"),
			Port:     envInt("SUPPORTKB_PG_PORT", 5432),
			User:     envString("SUPPORTKB_PG_USER", "postgres"),
			Password: envString("SUPPORTKB_PG_PASSWORD", "postgres"),
			DBName:   envString("SUPPORTKB_PG_DBNAME", "support_assistant"),
			SSLMode:  envString("SUPPORTKB_PG_SSLMODE", "disable"),
			Table:    envString("SUPPORTKB_PG_TABLE", "support_chunks"),
		},
		Redis: Redis{
			Enabled:  envBool("SUPPORTKB_REDIS_ENABLED", false),
			Addr:     envString("SUPPORTKB_REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("SUPPORTKB_REDIS_PASSWORD"),
			DB:       envInt("SUPPORTKB_REDIS_DB", 0),
			TTL:      envDuration("SUPPORTKB_REDIS_TTL", time.Hour),
		},
		Mongo: Mongo{
			Enabled:    envBool("SUPPORTKB_MONGO_ENABLED", false),
			URI:        envString("SUPPORTKB_MONGO_URI", "mongodb://localhost:27017"),
			Database:   envString("SUPPORTKB_MONGO_DATABASE", "support_assistant"),
			Collection: envString("SUPPORTKB_MONGO_COLLECTION", "resolutions"),
		},
		Pipeline: Pipeline{
			InitialK:            envInt("SUPPORTKB_INITIAL_K", 6),
			RerankTopK:          envInt("SUPPORTKB_RERANK_TOP_K", 4),
			FinalK:              envInt("SUPPORTKB_FINAL_K", 4),
			ClassifierThreshold: envFloat("SUPPORTKB_CLASSIFIER_THRESHOLD", 0.5),
			ContextBudget:       envInt("SUPPORTKB_CONTEXT_BUDGET", 0),
			CohereAPIKey:        os.Getenv("COHERE_API_KEY"),
		},
	}
}

// Validate checks the loaded configuration against the service's
// requirements.
func (c *Config) Validate() error {
	v := NewValidator()

	v.RequireNonEmpty("listenAddr", c.ListenAddr)
	v.ValidateOneOf("indexBackend", c.IndexBackend, IndexMemory, IndexPostgres)
	v.ValidateOneOf("llm.provider", c.LLM.Provider, ProviderOpenAI, ProviderClaude, ProviderGemini)
	v.RequireNonEmpty("llm.apiKey", c.LLM.APIKey)
	v.RequireNonEmpty("llm.model", c.LLM.Model)
	v.ValidateFloatRange("llm.temperature", c.LLM.Temperature, 0.0, 2.0)
	v.RequirePositive("llm.maxTokens", c.LLM.MaxTokens)
	v.RequirePositive("llm.retries", c.LLM.Retries)
	v.RequirePositive("llm.maxInFlight", c.LLM.MaxInFlight)
	v.RequireNonEmpty("embedding.apiKey", c.Embedding.APIKey)
	v.RequireNonEmpty("embedding.model", c.Embedding.Model)
	v.RequirePositive("embedding.dimension", c.Embedding.Dimension)
	v.RequirePositive("pipeline.initialK", c.Pipeline.InitialK)
	v.RequirePositive("pipeline.rerankTopK", c.Pipeline.RerankTopK)
	v.RequirePositive("pipeline.finalK", c.Pipeline.FinalK)
	v.ValidateFloatRange("pipeline.classifierThreshold", c.Pipeline.ClassifierThreshold, 0.0, 1.0)

	if c.IndexBackend == IndexPostgres {
		v.RequireNonEmpty("postgres.host", c.Postgres.Host)
		v.ValidatePort("postgres.port", c.Postgres.Port)
		v.RequireNonEmpty("postgres.user", c.Postgres.User)
		v.RequireNonEmpty("postgres.dbName", c.Postgres.DBName)
		v.ValidateOneOf("postgres.sslMode", c.Postgres.SSLMode, "disable", "require", "verify-ca", "verify-full")
		v.RequireNonEmpty("postgres.table", c.Postgres.Table)
	}
	if c.Redis.Enabled {
		v.RequireNonEmpty("redis.addr", c.Redis.Addr)
		v.ValidateRange("redis.db", c.Redis.DB, 0, 15)
	}
	if c.Mongo.Enabled {
		v.RequireNonEmpty("mongo.uri", c.Mongo.URI)
		v.RequireNonEmpty("mongo.database", c.Mongo.Database)
		v.RequireNonEmpty("mongo.collection", c.Mongo.Collection)
	}

	return v.Error()
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
