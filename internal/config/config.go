// Package config loads bomgraft runtime configuration from an optional YAML
// file and BOMGRAFT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Storage drivers for the revision ledger.
const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// Blob drivers for artifact storage.
const (
	BlobFilesystem = "fs"
	BlobS3         = "s3"
	BlobMemory     = "memory"
)

// Metrics drivers.
const (
	MetricsNone       = "none"
	MetricsExpvar     = "expvar"
	MetricsPrometheus = "prometheus"
)

// Config is the full runtime configuration.
type Config struct {
	Storage Storage `yaml:"storage"`
	Blob    Blob    `yaml:"blob"`
	Log     Log     `yaml:"log"`
	Metrics Metrics `yaml:"metrics"`
	Merge   Merge   `yaml:"merge"`
}

// Storage selects the revision ledger backend.
type Storage struct {
	Driver      string `yaml:"driver" validate:"oneof=memory sqlite postgres"`
	SQLitePath  string `yaml:"sqlite_path" validate:"required_if=Driver sqlite"`
	PostgresDSN string `yaml:"postgres_dsn" validate:"required_if=Driver postgres"`
}

// Blob selects where sealed artifacts are written.
type Blob struct {
	Driver string `yaml:"driver" validate:"oneof=fs s3 memory"`
	FSRoot string `yaml:"fs_root" validate:"required_if=Driver fs"`
	S3     S3     `yaml:"s3"`
}

// S3 configures an S3 or MinIO bucket. Credentials come from the standard
// AWS chain unless the static keys are set.
type S3 struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint" validate:"omitempty,url"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
}

// Log configures the zap logger.
type Log struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" validate:"oneof=json console"`
	Development bool   `yaml:"development"`
	OutputPath  string `yaml:"output_path"`
}

// Metrics selects the operation metrics recorder.
type Metrics struct {
	Driver string `yaml:"driver" validate:"oneof=none expvar prometheus"`
}

// Merge holds flatten and compare tuning.
type Merge struct {
	UnitMultiplier int `yaml:"unit_multiplier" validate:"min=1"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Storage: Storage{Driver: StorageSQLite, SQLitePath: "./bomgraft.db"},
		Blob:    Blob{Driver: BlobFilesystem, FSRoot: "./artifacts", S3: S3{Region: "us-east-1"}},
		Log:     Log{Level: "info", Format: "json"},
		Metrics: Metrics{Driver: MetricsNone},
		Merge:   Merge{UnitMultiplier: 1},
	}
}

var validate = validator.New()

// Load starts from Default, overlays the YAML file at path when it exists,
// applies environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// Validate checks field constraints. The S3 bucket is only required when the
// s3 driver is selected.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Blob.Driver == BlobS3 && c.Blob.S3.Bucket == "" {
		return fmt.Errorf("invalid config: blob.s3.bucket is required for the s3 driver")
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func applyEnv(cfg *Config, lookup lookupFunc) error {
	strs := map[string]*string{
		"BOMGRAFT_STORAGE_DRIVER":     &cfg.Storage.Driver,
		"BOMGRAFT_SQLITE_PATH":        &cfg.Storage.SQLitePath,
		"BOMGRAFT_POSTGRES_DSN":       &cfg.Storage.PostgresDSN,
		"BOMGRAFT_BLOB_DRIVER":        &cfg.Blob.Driver,
		"BOMGRAFT_BLOB_FS_ROOT":       &cfg.Blob.FSRoot,
		"BOMGRAFT_BLOB_S3_BUCKET":     &cfg.Blob.S3.Bucket,
		"BOMGRAFT_BLOB_S3_REGION":     &cfg.Blob.S3.Region,
		"BOMGRAFT_BLOB_S3_ENDPOINT":   &cfg.Blob.S3.Endpoint,
		"BOMGRAFT_BLOB_S3_ACCESS_KEY": &cfg.Blob.S3.AccessKeyID,
		"BOMGRAFT_BLOB_S3_SECRET_KEY": &cfg.Blob.S3.SecretAccessKey,
		"BOMGRAFT_LOG_LEVEL":          &cfg.Log.Level,
		"BOMGRAFT_LOG_FORMAT":         &cfg.Log.Format,
		"BOMGRAFT_LOG_OUTPUT":         &cfg.Log.OutputPath,
		"BOMGRAFT_METRICS_DRIVER":     &cfg.Metrics.Driver,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	bools := map[string]*bool{
		"BOMGRAFT_BLOB_S3_PATH_STYLE": &cfg.Blob.S3.PathStyle,
		"BOMGRAFT_LOG_DEVELOPMENT":    &cfg.Log.Development,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = b
		}
	}
	if v, ok := lookup("BOMGRAFT_UNIT_MULTIPLIER"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BOMGRAFT_UNIT_MULTIPLIER: %w", err)
		}
		cfg.Merge.UnitMultiplier = n
	}
	return nil
}
