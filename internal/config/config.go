package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingAPIKey is returned by Validate when no completion key is set.
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required (or pass --api-key, or use --dry-run)")

type Config struct {
	Port string

	// Auth for the HTTP service
	SumzeroAPIKey string

	// Completion endpoint
	OpenAIAPIKey   string
	OpenAIOrg      string
	OpenAIBaseURL  string
	StandardModel  string
	LargeModel     string
	Temperature    float64
	RequestTimeout time.Duration
	RetryBudget    time.Duration

	// Run behaviour
	HighCapacity   bool
	DryRun         bool
	Strict         bool
	Incremental    bool
	Verbose        bool
	ChapterWorkers int

	// Output
	OutputDir string
	CachePath string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool

	// Logging
	LogLevel  string
	LogFormat string
}

// LoadEnvFile loads a dotenv file into the process environment. An empty
// path loads ".env" from the working directory if present. Variables that
// are already set are not overridden.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		SumzeroAPIKey: os.Getenv("SUMZERO_API_KEY"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		OpenAIOrg:      os.Getenv("OPENAI_ORG"),
		OpenAIBaseURL:  os.Getenv("OPENAI_BASE_URL"),
		StandardModel:  envOr("SUMZERO_STANDARD_MODEL", "gpt-3.5-turbo-0125"),
		LargeModel:     envOr("SUMZERO_LARGE_MODEL", "gpt-4-0125-preview"),
		Temperature:    envFloat("SUMZERO_TEMPERATURE", 0),
		RequestTimeout: envDuration("SUMZERO_REQUEST_TIMEOUT", 120*time.Second),
		RetryBudget:    envDuration("SUMZERO_RETRY_BUDGET", 300*time.Second),

		HighCapacity:   envBool("SUMZERO_HIGH_CAPACITY", false),
		DryRun:         envBool("SUMZERO_DRY_RUN", false),
		Strict:         envBool("SUMZERO_STRICT", false),
		Incremental:    envBool("SUMZERO_INCREMENTAL", true),
		ChapterWorkers: envInt("SUMZERO_CHAPTER_WORKERS", 1),

		OutputDir: envOr("SUMZERO_OUTPUT_DIR", "output"),
		CachePath: os.Getenv("SUMZERO_CACHE_PATH"),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "json"),
	}

	if cfg.Temperature < 0 || cfg.Temperature > 2 {
		cfg.Temperature = 0
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 120 * time.Second
	}
	if cfg.RetryBudget <= 0 {
		cfg.RetryBudget = 300 * time.Second
	}
	if cfg.ChapterWorkers <= 0 {
		cfg.ChapterWorkers = 1
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks what a summarize run needs.
func (c Config) Validate() error {
	if c.OpenAIAPIKey == "" && !c.DryRun {
		return ErrMissingAPIKey
	}
	if c.StandardModel == "" || c.LargeModel == "" {
		return fmt.Errorf("model names must not be empty")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("SUMZERO_OUTPUT_DIR must not be empty")
	}
	return nil
}

// ValidateServer checks what the HTTP service needs on top of Validate.
func (c Config) ValidateServer() error {
	if c.SumzeroAPIKey == "" {
		return fmt.Errorf("SUMZERO_API_KEY is required")
	}
	return c.Validate()
}

// SlogLevel maps LogLevel to a slog level; unknown values fall back to info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func envOr(key, fallback string) string {
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
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
