package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMinConns int32  `envconfig:"DATABASE_MIN_CONNS" default:"1"`

	// VectorIndex selects where chunk embeddings live: "pgvector" or "memory".
	VectorIndex string `envconfig:"VECTOR_INDEX" default:"pgvector"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"askdesk-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey        string  `envconfig:"OPENAI_API_KEY"`
	ChatModel           string  `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"text-embedding-ada-002"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"1536"`
	EmbeddingsPerSecond float64 `envconfig:"EMBEDDINGS_PER_SECOND" default:"0"`

	ChunkSize    int `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int `envconfig:"CHUNK_OVERLAP" default:"200"`

	RelevanceThreshold   float64 `envconfig:"RAG_RELEVANCE_THRESHOLD" default:"0.7"`
	ConfidenceBoost      float64 `envconfig:"RAG_CONFIDENCE_BOOST" default:"1.2"`
	MaxContextDocuments  int     `envconfig:"RAG_MAX_CONTEXT_DOCUMENTS" default:"5"`
	CitationExcerptChars int     `envconfig:"RAG_CITATION_EXCERPT_CHARS" default:"500"`

	MaxUploadBytes   int64    `envconfig:"MAX_UPLOAD_BYTES" default:"52428800"`
	AllowedFileTypes []string `envconfig:"ALLOWED_FILE_TYPES" default:"pdf,docx,xlsx,pptx,txt,md,csv"`

	IngestionConcurrency int           `envconfig:"INGESTION_CONCURRENCY" default:"4"`
	SweepInterval        time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m"`
	SweepGracePeriod     time.Duration `envconfig:"SWEEP_GRACE_PERIOD" default:"5m"`

	LogFile string `envconfig:"LOG_FILE"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

// RAG holds the tunables of the vector fallback.
type RAG struct {
	RelevanceThreshold   float64
	ConfidenceBoost      float64
	MaxContextDocuments  int
	CitationExcerptChars int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("ASKDESK", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	for i, t := range cfg.AllowedFileTypes {
		cfg.AllowedFileTypes[i] = strings.ToLower(strings.TrimSpace(t))
	}

	if cfg.RelevanceThreshold < 0 || cfg.RelevanceThreshold >= 1 {
		return nil, fmt.Errorf("RAG_RELEVANCE_THRESHOLD must be in [0, 1), got %v", cfg.RelevanceThreshold)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// UsesMemoryIndex reports whether embeddings are kept in process instead of Postgres.
func (c *Config) UsesMemoryIndex() bool {
	return strings.EqualFold(strings.TrimSpace(c.VectorIndex), "memory")
}

func (c *Config) RAG() RAG {
	return RAG{
		RelevanceThreshold:   c.RelevanceThreshold,
		ConfidenceBoost:      c.ConfidenceBoost,
		MaxContextDocuments:  c.MaxContextDocuments,
		CitationExcerptChars: c.CitationExcerptChars,
	}
}
