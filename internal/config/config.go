// Package config provides configuration loading and management for the VSD service.
// It handles environment variable parsing and provides default values for all settings.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// init loads environment variables from .env files during package initialization.
// In development, it loads .env and .env.local files if they exist.
// In production, it relies solely on system environment variables.
// The loading order ensures that system environment variables take precedence over .env files.
func init() {
	// godotenv.Load() does not override already-set environment variables,
	// preserving OS env > .env precedence

	// Load .env file if it exists (for shared development config)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env file: %v\n", err)
		}
	}

	// Load .env.local if it exists (for local overrides, gitignored)
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Load(".env.local"); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to load .env.local file: %v\n", err)
		}
	}
}

// Config captures environment-driven settings for the VSD service.
type Config struct {
	Env         string // Deployment environment (dev, staging, prod)
	Port        string // HTTP server port
	DatabaseDSN string // Database connection string (PostgreSQL)
	NATSURL     string // NATS server URL
	S3Endpoint  string // S3-compatible storage endpoint for attachment files
	S3Region    string // S3 region
	S3Bucket    string // S3 bucket holding attachment files
	S3AccessKey string // S3 access key
	S3SecretKey string // S3 secret key
	JWTIssuer   string // Expected issuer for JWT validation on admin writes
	JWTAudience string // Expected audience for JWT validation on admin writes
	OriginURL   string // Origin CMS URL for the remote content provider
	SchemaURL   string // URL of the VideoObject JSON schema used for preview validation

	// Default content-type allowlist applied when the store has none configured
	DefaultContentTypes []string
}

// Default configuration values used when environment variables are not set
const (
	defaultPort     = "8080"      // Default HTTP server port
	defaultS3Region = "us-east-1" // Default S3 region
	defaultEnv      = "dev"       // Default environment
)

// Load reads environment variables and produces a Config suitable for wiring the service.
// It handles both required and optional configuration parameters, providing defaults where appropriate.
// Returns an error if required parameters are missing or invalid.
func Load() (Config, error) {
	cfg := Config{}

	if env, exists := os.LookupEnv("VSD_ENV"); exists {
		cfg.Env = env
	} else {
		cfg.Env = defaultEnv
	}

	if port, exists := os.LookupEnv("VSD_PORT"); exists {
		cfg.Port = port
	} else {
		cfg.Port = defaultPort
	}

	// Handle optional variables
	if dsn, exists := os.LookupEnv("VSD_DB_DSN"); exists {
		cfg.DatabaseDSN = dsn
	}

	if natsURL, exists := os.LookupEnv("VSD_NATS_URL"); exists {
		cfg.NATSURL = natsURL
	}

	if s3Endpoint, exists := os.LookupEnv("VSD_S3_ENDPOINT"); exists {
		cfg.S3Endpoint = s3Endpoint
	}

	if s3Region, exists := os.LookupEnv("VSD_S3_REGION"); exists {
		cfg.S3Region = s3Region
	} else {
		cfg.S3Region = defaultS3Region
	}

	if s3Bucket, exists := os.LookupEnv("VSD_S3_BUCKET"); exists {
		cfg.S3Bucket = s3Bucket
	}

	if s3AccessKey, exists := os.LookupEnv("VSD_S3_ACCESS_KEY"); exists {
		cfg.S3AccessKey = s3AccessKey
	}

	if s3SecretKey, exists := os.LookupEnv("VSD_S3_SECRET_KEY"); exists {
		cfg.S3SecretKey = s3SecretKey
	}

	if jwtIssuer, exists := os.LookupEnv("VSD_JWT_ISSUER"); exists {
		cfg.JWTIssuer = jwtIssuer
	}

	if jwtAudience, exists := os.LookupEnv("VSD_JWT_AUDIENCE"); exists {
		cfg.JWTAudience = jwtAudience
	}

	if originURL, exists := os.LookupEnv("VSD_ORIGIN_URL"); exists {
		cfg.OriginURL = originURL
	}

	if schemaURL, exists := os.LookupEnv("VSD_SCHEMA_URL"); exists {
		cfg.SchemaURL = schemaURL
	}

	// Handle the default content-type allowlist
	if types, exists := os.LookupEnv("VSD_DEFAULT_CONTENT_TYPES"); exists {
		cfg.DefaultContentTypes = strings.Split(types, ",")
		for i, t := range cfg.DefaultContentTypes {
			cfg.DefaultContentTypes[i] = strings.TrimSpace(t)
		}
	} else {
		cfg.DefaultContentTypes = []string{"post", "page"}
	}

	// Validate required parameters
	if cfg.JWTIssuer == "" {
		return cfg, fmt.Errorf("VSD_JWT_ISSUER is required")
	}

	if cfg.JWTAudience == "" {
		return cfg, fmt.Errorf("VSD_JWT_AUDIENCE is required")
	}

	return cfg, nil
}
