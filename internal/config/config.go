// Package config loads qcatlas settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Trace exporters.
const (
	TraceExporterNone   = "none"
	TraceExporterStdout = "stdout"
)

// Config holds all application configuration.
type Config struct {
	Storage        Storage
	Blob           Blob
	LogLevel       string `env:"QCATLAS_LOG_LEVEL" envDefault:"info"`
	MetricsEnabled bool   `env:"QCATLAS_METRICS_ENABLED" envDefault:"false"`
	TraceExporter  string `env:"QCATLAS_TRACE_EXPORTER" envDefault:"none"`
}

// Storage selects and configures the entity store.
type Storage struct {
	Driver      string `env:"QCATLAS_STORAGE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"QCATLAS_SQLITE_PATH" envDefault:"./qcatlas.db"`
	PostgresDSN string `env:"QCATLAS_POSTGRES_DSN"`
}

// Blob selects and configures the attachment store.
type Blob struct {
	Driver            string `env:"QCATLAS_BLOB_DRIVER" envDefault:"fs"`
	FSRoot            string `env:"QCATLAS_BLOB_FS_ROOT" envDefault:"./blobdata"`
	S3Bucket          string `env:"QCATLAS_BLOB_S3_BUCKET"`
	S3Region          string `env:"QCATLAS_BLOB_S3_REGION" envDefault:"us-east-1"`
	S3Endpoint        string `env:"QCATLAS_BLOB_S3_ENDPOINT"`
	S3PathStyle       bool   `env:"QCATLAS_BLOB_S3_PATH_STYLE" envDefault:"false"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
}

// Load reads envFile (or ./.env when empty) if present, then parses the process environment.
func Load(envFile string) (*Config, error) {
	var err error
	if envFile != "" {
		err = godotenv.Load(envFile)
	} else {
		err = godotenv.Load()
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromMap parses configuration from an explicit variable set instead of the process environment.
func FromMap(vars map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks driver names and driver-specific requirements.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case StorageMemory, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("QCATLAS_POSTGRES_DSN required for postgres storage")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	c.Blob.Driver = strings.ToLower(strings.TrimSpace(c.Blob.Driver))
	switch c.Blob.Driver {
	case "fs", "memory":
	case "s3":
		if c.Blob.S3Bucket == "" {
			return fmt.Errorf("QCATLAS_BLOB_S3_BUCKET required for s3 blob driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	c.TraceExporter = strings.ToLower(strings.TrimSpace(c.TraceExporter))
	switch c.TraceExporter {
	case TraceExporterNone, TraceExporterStdout:
	default:
		return fmt.Errorf("unknown trace exporter %q", c.TraceExporter)
	}
	return nil
}
