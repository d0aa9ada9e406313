package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr = %s", cfg.ListenAddr)
	}
	if cfg.MaxPatientsPerJob != DefaultMaxPatientsPerJob {
		t.Errorf("max patients = %d", cfg.MaxPatientsPerJob)
	}
	if cfg.JobTimeout != DefaultJobTimeout {
		t.Errorf("job timeout = %s", cfg.JobTimeout)
	}
	if cfg.RetentionPeriod != DefaultRetentionPeriod {
		t.Errorf("retention = %s", cfg.RetentionPeriod)
	}
	if cfg.OutputDirectory != "outputs" {
		t.Errorf("output directory = %s", cfg.OutputDirectory)
	}
	if cfg.OTelExporter != "none" {
		t.Errorf("otel exporter = %s", cfg.OTelExporter)
	}
	if !cfg.CacheEnabled {
		t.Error("cache should default to enabled")
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "*" {
		t.Errorf("cors origins = %v", cfg.CORSOrigins)
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("MAX_PATIENTS_PER_JOB", "500")
	t.Setenv("JOB_TIMEOUT_SECONDS", "120")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("API_KEY", "sekrit")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":9999" {
		t.Errorf("listen addr = %s", cfg.ListenAddr)
	}
	if cfg.MaxPatientsPerJob != 500 {
		t.Errorf("max patients = %d", cfg.MaxPatientsPerJob)
	}
	if cfg.JobTimeout != 2*time.Minute {
		t.Errorf("job timeout = %s", cfg.JobTimeout)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("cors origins = %v", cfg.CORSOrigins)
	}
	if cfg.APIKey != "sekrit" {
		t.Errorf("api key = %s", cfg.APIKey)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("MAX_PATIENTS_PER_JOB", "-1")
	if _, err := Load(); err == nil {
		t.Error("expected error for negative quota")
	}
}
