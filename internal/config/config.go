package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Compression backend
	Backend      string // "groq" or "gemini"
	GroqAPIKey   string
	GroqModel    string
	GroqBaseURL  string
	GeminiAPIKey string
	GeminiModel  string

	// Backend rate limit, requests per second.
	BackendRPS float64

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentUnits int

	// Upload limits
	MaxUploadBytes int64

	// Report defaults, overridable per request.
	GlobalBudget int
	MaxUnitSize  int

	// Job state
	JobTTL time.Duration

	// Tuning file, optional YAML overriding built-in thresholds.
	TuningPath string

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("DOCREPORTER_API_KEY"),

		Backend:      envOr("COMPRESS_BACKEND", "groq"),
		GroqAPIKey:   os.Getenv("GROQ_API_KEY"),
		GroqModel:    envOr("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:  envOr("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  envOr("GEMINI_MODEL", "gemini-2.5-flash"),

		BackendRPS: envFloat("BACKEND_RPS", 2.0),

		WorkerCount:        envInt("WORKER_COUNT", 2),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentUnits: envInt("MAX_CONCURRENT_UNITS", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		GlobalBudget: envInt("GLOBAL_BUDGET", 15000),
		MaxUnitSize:  envInt("MAX_UNIT_SIZE", 1500),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		TuningPath: os.Getenv("TUNING_PATH"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentUnits <= 0 {
		cfg.MaxConcurrentUnits = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.GlobalBudget <= 0 {
		cfg.GlobalBudget = 15000
	}
	if cfg.MaxUnitSize <= 0 {
		cfg.MaxUnitSize = 1500
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.BackendRPS <= 0 {
		cfg.BackendRPS = 2.0
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCREPORTER_API_KEY is required")
	}
	switch c.Backend {
	case "groq":
		if c.GroqAPIKey == "" {
			return fmt.Errorf("GROQ_API_KEY is required for the groq backend")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		return fmt.Errorf("unknown COMPRESS_BACKEND %q (want groq or gemini)", c.Backend)
	}
	return nil
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
