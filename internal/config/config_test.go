package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port != "8090" {
		t.Errorf("port = %q", cfg.Port)
	}
	if cfg.Backend != "groq" {
		t.Errorf("backend = %q", cfg.Backend)
	}
	if cfg.WorkerCount != 2 || cfg.MaxQueueSize != 100 || cfg.MaxConcurrentUnits != 4 {
		t.Errorf("worker defaults = %+v", cfg)
	}
	if cfg.GlobalBudget != 15000 || cfg.MaxUnitSize != 1500 {
		t.Errorf("report defaults = %+v", cfg)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("job ttl = %v", cfg.JobTTL)
	}
	if cfg.BackendRPS != 2.0 {
		t.Errorf("backend rps = %v", cfg.BackendRPS)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("BACKEND_RPS", "0.5")
	t.Setenv("JOB_TTL", "30m")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")

	cfg := Load()
	if cfg.Port != "9000" || cfg.WorkerCount != 8 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.BackendRPS != 0.5 {
		t.Errorf("rps = %v", cfg.BackendRPS)
	}
	if cfg.JobTTL != 30*time.Minute {
		t.Errorf("ttl = %v", cfg.JobTTL)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("bool override not applied")
	}
}

func TestValidate(t *testing.T) {
	cfg := Config{Backend: "groq"}
	if err := cfg.Validate(); err == nil {
		t.Error("missing api key must fail")
	}

	cfg.APIKey = "secret"
	if err := cfg.Validate(); err == nil {
		t.Error("groq backend without GROQ_API_KEY must fail")
	}

	cfg.GroqAPIKey = "gsk"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid groq config rejected: %v", err)
	}

	cfg.Backend = "gemini"
	if err := cfg.Validate(); err == nil {
		t.Error("gemini backend without GEMINI_API_KEY must fail")
	}
	cfg.GeminiAPIKey = "gk"
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid gemini config rejected: %v", err)
	}

	cfg.Backend = "other"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown backend must fail")
	}
}
