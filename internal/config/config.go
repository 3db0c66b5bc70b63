// Package config collects all runtime settings. Values come from environment
// variables; CONFIG_FILE may point at a YAML file whose values are applied
// first, so the environment always wins.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ProjectName string `yaml:"project_name"`
	Port        string `yaml:"port"`
	APIPrefix   string `yaml:"api_prefix"`

	MaxContentLength  int64    `yaml:"max_content_length"`
	AllowedImageTypes []string `yaml:"allowed_image_types"`

	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	OCRLanguages        string  `yaml:"ocr_languages"`

	RateLimitPerMinute int      `yaml:"rate_limit_per_minute"`
	CORSOrigins        []string `yaml:"cors_origins"`

	DatabaseURL string `yaml:"database_url"`

	UploadDir    string `yaml:"upload_dir"`
	S3Endpoint   string `yaml:"s3_endpoint"`
	S3Region     string `yaml:"s3_region"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3AccessKey  string `yaml:"s3_access_key"`
	S3SecretKey  string `yaml:"s3_secret_key"`
}

func Default() *Config {
	return &Config{
		ProjectName:         "KTP Recognition API",
		Port:                "8080",
		APIPrefix:           "/api",
		MaxContentLength:    10 << 20,
		AllowedImageTypes:   []string{"image/jpeg", "image/png"},
		ConfidenceThreshold: 0.8,
		OCRLanguages:        "ind+eng",
		RateLimitPerMinute:  60,
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://localhost:4173",
		},
		UploadDir: "uploads",
		S3Region:  "us-east-1",
	}
}

// Load builds the configuration from defaults, an optional YAML file, and
// the environment, in that order.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnv()

	if cfg.MaxContentLength <= 0 {
		return nil, fmt.Errorf("max_content_length must be positive, got %d", cfg.MaxContentLength)
	}
	if cfg.RateLimitPerMinute <= 0 {
		return nil, fmt.Errorf("rate_limit_per_minute must be positive, got %d", cfg.RateLimitPerMinute)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Port, "PORT")
	setString(&c.APIPrefix, "API_PREFIX")
	setString(&c.DatabaseURL, "DATABASE_URL")
	setString(&c.OCRLanguages, "OCR_LANGUAGES")
	setString(&c.UploadDir, "UPLOAD_DIR")
	setString(&c.S3Endpoint, "S3_ENDPOINT")
	setString(&c.S3Region, "AWS_REGION")
	setString(&c.S3Bucket, "S3_BUCKET_NAME")
	setString(&c.S3AccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.S3SecretKey, "AWS_SECRET_ACCESS_KEY")

	if v := os.Getenv("MAX_CONTENT_LENGTH"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.MaxContentLength = n
		}
	}
	if v := os.Getenv("RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.ConfidenceThreshold = f
		}
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		c.CORSOrigins = splitAndTrim(v)
	}
}

// UseS3 reports whether uploads should go to S3 rather than the local
// filesystem.
func (c *Config) UseS3() bool {
	return c.S3AccessKey != "" || c.S3Endpoint != ""
}

func (c *Config) AllowsContentType(contentType string) bool {
	for _, t := range c.AllowedImageTypes {
		if strings.EqualFold(t, contentType) {
			return true
		}
	}
	return false
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
