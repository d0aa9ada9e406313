// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Default configuration constants for job execution and caching.
const (
	DefaultMaxPatientsPerJob = 100000
	DefaultJobTimeout        = time.Hour
	DefaultChunkBufferSize   = 64
	DefaultRetentionPeriod   = 7 * 24 * time.Hour

	// Cache TTLs. Running jobs change often; terminal jobs are frozen.
	RunningJobTTL  = 60 * time.Second
	TerminalJobTTL = time.Hour
	TemplateTTL    = time.Hour
	MetadataTTL    = 5 * time.Minute
)

// Config holds all server settings resolved from the environment.
type Config struct {
	ListenAddr string
	APIKey     string

	DatabaseURL  string
	RedisURL     string
	CacheEnabled bool

	CORSOrigins []string
	Debug       bool

	MaxPatientsPerJob int
	JobTimeout        time.Duration
	RetentionPeriod   time.Duration

	OutputDirectory string
	TempDirectory   string

	OTelExporter string
	OTelEndpoint string
}

// Load reads configuration from the environment with sane defaults.
// DATABASE_URL and REDIS_URL are optional; without them the server runs
// on the in-memory store without caching.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("LISTEN_ADDR", ":8080")
	v.SetDefault("CACHE_ENABLED", true)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("DEBUG", false)
	v.SetDefault("MAX_PATIENTS_PER_JOB", DefaultMaxPatientsPerJob)
	v.SetDefault("JOB_TIMEOUT_SECONDS", int(DefaultJobTimeout.Seconds()))
	v.SetDefault("RETENTION_HOURS", int(DefaultRetentionPeriod.Hours()))
	v.SetDefault("OUTPUT_DIRECTORY", "outputs")
	v.SetDefault("TEMP_DIRECTORY", "tmp")
	v.SetDefault("OTEL_EXPORTER", "none")
	v.SetDefault("OTEL_ENDPOINT", "")

	cfg := &Config{
		ListenAddr:        v.GetString("LISTEN_ADDR"),
		APIKey:            v.GetString("API_KEY"),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		RedisURL:          v.GetString("REDIS_URL"),
		CacheEnabled:      v.GetBool("CACHE_ENABLED"),
		Debug:             v.GetBool("DEBUG"),
		MaxPatientsPerJob: v.GetInt("MAX_PATIENTS_PER_JOB"),
		JobTimeout:        time.Duration(v.GetInt("JOB_TIMEOUT_SECONDS")) * time.Second,
		RetentionPeriod:   time.Duration(v.GetInt("RETENTION_HOURS")) * time.Hour,
		OutputDirectory:   v.GetString("OUTPUT_DIRECTORY"),
		TempDirectory:     v.GetString("TEMP_DIRECTORY"),
		OTelExporter:      v.GetString("OTEL_EXPORTER"),
		OTelEndpoint:      v.GetString("OTEL_ENDPOINT"),
	}

	for _, origin := range strings.Split(v.GetString("CORS_ORIGINS"), ",") {
		origin = strings.TrimSpace(origin)
		if origin != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, origin)
		}
	}

	if cfg.MaxPatientsPerJob <= 0 {
		return nil, fmt.Errorf("MAX_PATIENTS_PER_JOB must be positive, got %d", cfg.MaxPatientsPerJob)
	}
	if cfg.JobTimeout <= 0 {
		return nil, fmt.Errorf("JOB_TIMEOUT_SECONDS must be positive")
	}
	return cfg, nil
}
