package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var (
	ErrMissingRequired = errors.New("missing required configuration")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

const (
	ProviderGemini  = "gemini"
	ProviderHashing = "hashing"
)

type Config struct {
	// Cleaning
	TextField             string   `envconfig:"TEXT_FIELD"`
	MinTokens             int      `envconfig:"MIN_TOKENS" default:"2"`
	StopwordLanguages     []string `envconfig:"STOPWORD_LANGUAGES" default:"en,fr,es"`
	StopwordsFile         string   `envconfig:"STOPWORDS_FILE"`
	DictionaryFile        string   `envconfig:"DICTIONARY_FILE"`
	NormalizerMode        string   `envconfig:"NORMALIZER_MODE" default:"ascii"`
	RepairCodec           string   `envconfig:"REPAIR_CODEC" default:"windows-1252"`
	GibberishMinAlnumRun  int      `envconfig:"GIBBERISH_MIN_ALNUM_RUN" default:"30"`
	GibberishMinSymbolRun int      `envconfig:"GIBBERISH_MIN_SYMBOL_RUN" default:"5"`
	CleanConcurrency      int      `envconfig:"CLEAN_CONCURRENCY" default:"8"`

	// Embedding filter
	EmbeddingEnabled    bool    `envconfig:"EMBEDDING_ENABLED" default:"true"`
	EmbeddingProvider   string  `envconfig:"EMBEDDING_PROVIDER" default:"gemini"`
	EmbeddingModel      string  `envconfig:"EMBEDDING_MODEL" default:"gemini-embedding-001"`
	EmbeddingDimensions int     `envconfig:"EMBEDDING_DIMENSIONS" default:"256"`
	EmbeddingBatchSize  int     `envconfig:"EMBEDDING_BATCH_SIZE" default:"100"`
	SimilarityThreshold float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.25"`
	GeminiAPIKey        string  `envconfig:"GEMINI_API_KEY"`

	// Output
	OutputBOM bool `envconfig:"OUTPUT_BOM" default:"false"`

	// Acquisition
	YouTubeAPIKey string `envconfig:"YOUTUBE_API_KEY"`

	// Run ledger
	EnableRunLedger bool   `envconfig:"ENABLE_RUN_LEDGER" default:"false"`
	DBHost          string `envconfig:"DB_HOST" default:"postgres"`
	DBPort          int    `envconfig:"DB_PORT" default:"5432"`
	DBUser          string `envconfig:"DB_USER" default:"murmur"`
	DBPass          string `envconfig:"DB_PASS" default:"password"`
	DBName          string `envconfig:"DB_NAME" default:"murmur"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`
	RunLogPath      string `envconfig:"RUN_LOG_PATH" default:"data/logs/runs.log"`

	// Vector sink
	EnableVectorSink bool   `envconfig:"ENABLE_VECTOR_SINK" default:"false"`
	WeaviateHost     string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme   string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	// Messaging
	EnableConsumer  bool   `envconfig:"ENABLE_CONSUMER" default:"false"`
	EnablePublisher bool   `envconfig:"ENABLE_PUBLISHER" default:"false"`
	NSQLookupd      string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost        string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP        string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`
	NSQMaxAttempts  uint16 `envconfig:"NSQ_MAX_ATTEMPTS" default:"5"`

	// Server
	ServerPort int    `envconfig:"SERVER_PORT" default:"8081"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	_ = godotenv.Load(filepath.Join(cwd, "../../.env"))

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.MinTokens < 1 {
		return fmt.Errorf("%w: MIN_TOKENS must be at least 1", ErrInvalidValue)
	}
	if c.SimilarityThreshold < -1 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("%w: SIMILARITY_THRESHOLD must be within [-1, 1]", ErrInvalidValue)
	}
	switch c.NormalizerMode {
	case "ascii", "unicode":
	default:
		return fmt.Errorf("%w: NORMALIZER_MODE %q", ErrInvalidValue, c.NormalizerMode)
	}
	if c.EmbeddingEnabled {
		switch c.EmbeddingProvider {
		case ProviderGemini, ProviderHashing:
		default:
			return fmt.Errorf("%w: EMBEDDING_PROVIDER %q", ErrInvalidValue, c.EmbeddingProvider)
		}
	}
	if c.EnableRunLedger {
		if c.DBHost == "" {
			return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
		}
		if c.DBUser == "" {
			return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
		}
		if c.DBName == "" {
			return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
		}
	}
	if c.EnableVectorSink && c.WeaviateHost == "" {
		return fmt.Errorf("%w: WEAVIATE_HOST", ErrMissingRequired)
	}
	return nil
}

// RequireGeminiKey is checked when the gemini embedder is about to be built,
// so commands that never embed run without a key.
func (c *Config) RequireGeminiKey() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingRequired)
	}
	return nil
}

func (c *Config) RequireYouTubeKey() error {
	if c.YouTubeAPIKey == "" {
		return fmt.Errorf("%w: YOUTUBE_API_KEY", ErrMissingRequired)
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBUser, c.DBPass, c.DBName)
}
