// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// MongoURI is the MongoDB connection string (e.g. mongodb://localhost:27017).
	MongoURI string `mapstructure:"MONGO_URI"`
	// MongoDatabase is the database name holding users, tenants, logs, and reset tokens.
	MongoDatabase string `mapstructure:"MONGO_DATABASE"`
	// RedisAddr is the Redis host:port for the read-through cache; empty disables caching.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; signs access and refresh tokens.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; verifies tokens without the signing secret.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTIssuer is the iss claim; verified on access tokens.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim; verified on access tokens.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// JWTAccessTTL is the access token lifetime (e.g. "2h").
	JWTAccessTTL string `mapstructure:"JWT_ACCESS_TTL"`
	// JWTRefreshTTL is the refresh token lifetime (e.g. "720h" for 30 days).
	JWTRefreshTTL string `mapstructure:"JWT_REFRESH_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RateLimitSweepInterval is how often idle rate-limit counters are swept (e.g. "1m").
	RateLimitSweepInterval string `mapstructure:"RATE_LIMIT_SWEEP_INTERVAL"`
	// ResetTokenSweepInterval is how often expired password-reset tokens are removed by the worker (e.g. "1h").
	ResetTokenSweepInterval string `mapstructure:"RESET_TOKEN_SWEEP_INTERVAL"`
	// ResetTokenTTL is the password-reset token lifetime (e.g. "1h").
	ResetTokenTTL string `mapstructure:"RESET_TOKEN_TTL"`
	// GoogleClientID is the OAuth client id for Google sign-in; empty disables Google login.
	GoogleClientID string `mapstructure:"GOOGLE_CLIENT_ID"`
	// GoogleClientSecret is the OAuth client secret for Google sign-in.
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	// AppleClientID is the services id for Sign in with Apple; empty disables Apple login.
	AppleClientID string `mapstructure:"APPLE_CLIENT_ID"`
	// AppleClientSecret is the pre-generated client secret JWT for Sign in with Apple.
	AppleClientSecret string `mapstructure:"APPLE_CLIENT_SECRET"`
	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP export even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTLP_INSECURE"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "identity")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_ISSUER", "tenant-identity")
	v.SetDefault("JWT_AUDIENCE", "tenant-identity-api")
	v.SetDefault("JWT_ACCESS_TTL", "2h")
	v.SetDefault("JWT_REFRESH_TTL", "720h") // 30d
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("RATE_LIMIT_SWEEP_INTERVAL", "1m")
	v.SetDefault("RESET_TOKEN_SWEEP_INTERVAL", "1h")
	v.SetDefault("RESET_TOKEN_TTL", "1h")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("APPLE_CLIENT_ID", "")
	v.SetDefault("APPLE_CLIENT_SECRET", "")
	v.SetDefault("OTLP_ENDPOINT", "")
	v.SetDefault("OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.MongoURI == "" {
		return nil, errors.New("config: MONGO_URI must be set")
	}
	if cfg.MongoDatabase == "" {
		return nil, errors.New("config: MONGO_DATABASE must be set")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// AccessTTL parses JWTAccessTTL as a time.Duration. Returns 2h if unset or invalid.
func (c *Config) AccessTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTAccessTTL)
	if err != nil || d <= 0 {
		return 2 * time.Hour
	}
	return d
}

// RefreshTTL parses JWTRefreshTTL as a time.Duration. Returns 720h if unset or invalid.
func (c *Config) RefreshTTL() time.Duration {
	d, err := time.ParseDuration(c.JWTRefreshTTL)
	if err != nil || d <= 0 {
		return 720 * time.Hour
	}
	return d
}

// ResetTTL parses ResetTokenTTL as a time.Duration. Returns 1h if unset or invalid.
func (c *Config) ResetTTL() time.Duration {
	d, err := time.ParseDuration(c.ResetTokenTTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// SweepInterval parses RateLimitSweepInterval. Returns 1m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.RateLimitSweepInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// ResetSweepInterval parses ResetTokenSweepInterval. Returns 1h if unset or invalid.
func (c *Config) ResetSweepInterval() time.Duration {
	d, err := time.ParseDuration(c.ResetTokenSweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}
