// Package config handles loading application settings from the environment
// and the optional table manifest file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all configuration for the application,
// typically loaded from environment variables.
type Config struct {
	AppEnv   string `validate:"required"`
	LogLevel string `validate:"omitempty,oneof=trace debug info warn error fatal panic disabled"`

	PostgresConnString  string
	WarehouseConnString string
	MongoConnString     string
	MongoDatabase       string `validate:"required"`
	MongoLogDatabase    string `validate:"required"`

	S3Bucket   string
	S3Region   string `validate:"required"`
	S3Endpoint string `validate:"omitempty,url"`

	AnonymizeSalt   string `validate:"required"`
	PipelineVersion string `validate:"required"`

	HTTPAddr  string `validate:"required"`
	RedisAddr string `validate:"required,hostname_port"`
	RedisPass string
	RedisDB   int           `validate:"gte=0"`
	CacheTTL  time.Duration `validate:"gte=0"`
	// APIRateLimit is requests per second for the report API; 0 disables it.
	APIRateLimit int `validate:"gte=0"`
}

// Requirement names an optional setting a command cannot run without.
type Requirement string

const (
	NeedPostgres  Requirement = "POSTGRES_CONNECTION_STRING"
	NeedWarehouse Requirement = "WAREHOUSE_CONNECTION_STRING"
	NeedMongo     Requirement = "MONGO_CONNECTION_STRING"
	NeedBucket    Requirement = "AWS_S3_BUCKET"
)

var validate = validator.New()

// LoadConfig loads application settings from environment variables
// (which should be populated by the .env file in main.go).
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:              env("APP_ENV", "prod"),
		LogLevel:            strings.ToLower(env("LOG_LEVEL", "info")),
		PostgresConnString:  os.Getenv("POSTGRES_CONNECTION_STRING"),
		WarehouseConnString: os.Getenv("WAREHOUSE_CONNECTION_STRING"),
		MongoConnString:     os.Getenv("MONGO_CONNECTION_STRING"),
		MongoDatabase:       env("MONGO_DATABASE", "amazon_reviews"),
		MongoLogDatabase:    env("MONGO_LOG_DATABASE", "airflow_logs"),
		S3Bucket:            strings.TrimSuffix(strings.TrimPrefix(os.Getenv("AWS_S3_BUCKET"), "s3://"), "/"),
		S3Region:            env("AWS_REGION", "eu-west-3"),
		S3Endpoint:          os.Getenv("AWS_S3_ENDPOINT"),
		AnonymizeSalt:       env("ANONYMIZE_SALT", "default_salt"),
		PipelineVersion:     env("PIPELINE_VERSION", "1.0.0"),
		HTTPAddr:            env("HTTP_ADDR", ":8080"),
		RedisAddr:           env("REDIS_ADDR", "localhost:6379"),
		RedisPass:           os.Getenv("REDIS_PASSWORD"),
	}

	var err error
	if cfg.RedisDB, err = atoi("REDIS_DB", 0); err != nil {
		return nil, err
	}
	ttl, err := atoi("CACHE_TTL_SECONDS", 60)
	if err != nil {
		return nil, err
	}
	cfg.CacheTTL = time.Duration(ttl) * time.Second
	if cfg.APIRateLimit, err = atoi("API_RATE_LIMIT_RPS", 0); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Require checks that every listed setting is present.
func (c *Config) Require(reqs ...Requirement) error {
	var missing []string
	for _, r := range reqs {
		var v string
		switch r {
		case NeedPostgres:
			v = c.PostgresConnString
		case NeedWarehouse:
			v = c.WarehouseConnString
		case NeedMongo:
			v = c.MongoConnString
		case NeedBucket:
			v = c.S3Bucket
		}
		if v == "" {
			missing = append(missing, string(r))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s environment variable not set", strings.Join(missing, ", "))
	}
	return nil
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func atoi(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", k, err)
	}
	return n, nil
}
