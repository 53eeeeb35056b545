package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string        `mapstructure:"PORT"`
	Env                string        `mapstructure:"ENV"`
	DatabaseURL        string        `mapstructure:"DATABASE_URL"`
	DBMaxConns         int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns         int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema           string        `mapstructure:"DB_SCHEMA"`
	RedisURL           string        `mapstructure:"REDIS_URL"`
	JWTSecret          string        `mapstructure:"JWT_SECRET"`
	JWTIssuer          string        `mapstructure:"JWT_ISSUER"`
	JWTAccessTTL       time.Duration `mapstructure:"JWT_ACCESS_TTL"`
	JWTRefreshTTL      time.Duration `mapstructure:"JWT_REFRESH_TTL"`
	SessionSecret      string        `mapstructure:"SESSION_SECRET"`
	SessionTTL         time.Duration `mapstructure:"SESSION_TTL"`
	CORSOrigins        []string      `mapstructure:"CORS_ORIGINS"`
	HIPAAEncryptionKey string        `mapstructure:"HIPAA_ENCRYPTION_KEY"`
	PhoneRegion        string        `mapstructure:"PHONE_REGION"`
	RateLimitRPS       float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout     time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit          string        `mapstructure:"BODY_LIMIT"`
	FormBodyLimit      string        `mapstructure:"FORM_BODY_LIMIT"`
	LogLevel           string        `mapstructure:"LOG_LEVEL"`
	LogFile            string        `mapstructure:"LOG_FILE"`
	LogMaxSizeMB       int           `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups      int           `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays      int           `mapstructure:"LOG_MAX_AGE_DAYS"`
	TLSEnabled         bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile        string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile         string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA",
	"REDIS_URL", "JWT_SECRET", "JWT_ISSUER", "JWT_ACCESS_TTL", "JWT_REFRESH_TTL",
	"SESSION_SECRET", "SESSION_TTL", "CORS_ORIGINS", "HIPAA_ENCRYPTION_KEY",
	"PHONE_REGION", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT",
	"BODY_LIMIT", "FORM_BODY_LIMIT", "LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB",
	"LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS", "TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

// Load reads configuration from the environment, with an optional .env file
// in the working directory. DATABASE_URL, JWT_SECRET and SESSION_SECRET are
// required; the server refuses to start without them.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "production")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("JWT_ISSUER", "radiology")
	v.SetDefault("JWT_ACCESS_TTL", "15m")
	v.SetDefault("JWT_REFRESH_TTL", "168h")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("PHONE_REGION", "EG")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "1M")
	v.SetDefault("FORM_BODY_LIMIT", "5M")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	var missing []string
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%s is required", strings.Join(missing, ", "))
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EncryptionKey decodes HIPAA_ENCRYPTION_KEY. It returns nil when the key is
// not configured.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.HIPAAEncryptionKey == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.HIPAAEncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("HIPAA_ENCRYPTION_KEY is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("HIPAA_ENCRYPTION_KEY must be 32 bytes (64 hex chars), got %d bytes", len(key))
	}
	return key, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.HIPAAEncryptionKey == "" {
			return fmt.Errorf("HIPAA_ENCRYPTION_KEY is required in production")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required in production so sessions survive restarts")
		}
	}
	if _, err := c.EncryptionKey(); err != nil {
		return err
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.JWTRefreshTTL <= c.JWTAccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must be longer than JWT_ACCESS_TTL")
	}

	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
