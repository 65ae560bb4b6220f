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

	// Upload service connection
	UploadBaseURL string
	UploadAPIKey  string

	// Image limits
	MaxImageBytes int64

	// Save
	AutosaveInterval time.Duration

	// Base for resolving relative image URLs during sanitization
	BaseURL string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("BLOCKDOC_API_KEY"),

		UploadBaseURL: envOr("UPLOAD_BASE_URL", "http://localhost:8080"),
		UploadAPIKey:  os.Getenv("UPLOAD_API_KEY"),

		MaxImageBytes: envInt64("MAX_IMAGE_BYTES", 5242880), // 5MB

		AutosaveInterval: envDuration("AUTOSAVE_INTERVAL", 30*time.Second),

		BaseURL: envOr("BASE_URL", "https://localhost/"),
	}

	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5242880
	}
	if cfg.AutosaveInterval <= 0 {
		cfg.AutosaveInterval = 30 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("BLOCKDOC_API_KEY is required")
	}
	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
