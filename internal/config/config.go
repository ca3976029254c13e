// File: backend/services/impersonation-service/internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"time"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	JWT         JWTConfig      `mapstructure:"jwt"`
	Vault       VaultConfig    `mapstructure:"vault"`
	Session     SessionConfig  `mapstructure:"session"`
	Audit       AuditConfig    `mapstructure:"audit"`
	StepUp      StepUpConfig   `mapstructure:"step_up"`
	Logging     LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	User         string        `mapstructure:"user"`
	Password     string        `mapstructure:"password"`
	DBName       string        `mapstructure:"dbname"`
	SSLMode      string        `mapstructure:"sslmode"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	ConnMaxLife  time.Duration `mapstructure:"conn_max_life"`
	AutoMigrate  bool          `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTConfig struct {
	Secret   string `mapstructure:"secret"`
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
}

type VaultConfig struct {
	// KeyHex is the AES-256 key for sealing credentials, hex-encoded
	// (64 characters).
	KeyHex string `mapstructure:"key_hex"`
}

type SessionConfig struct {
	// TTL bounds every impersonation session. Fixed at creation, never
	// extended.
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type AuditConfig struct {
	// QueueSize bounds the in-memory api_call audit queue; entries beyond it
	// are dropped and counted rather than blocking responses.
	QueueSize int `mapstructure:"queue_size"`
	// SkipEndpoints are path substrings excluded from api_call logging to
	// avoid self-referential noise. Lifecycle entries are always written by
	// the session manager regardless of this list.
	SkipEndpoints []string `mapstructure:"skip_endpoints"`
}

type StepUpConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Window  time.Duration `mapstructure:"window"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate enforces that required secrets are present. In production they must
// never be defaulted silently.
func (c *Config) Validate() error {
	if c.Environment == "production" {
		if c.JWT.Secret == "" {
			return errors.New("jwt.secret is required in production")
		}
		if c.Vault.KeyHex == "" {
			return errors.New("vault.key_hex is required in production")
		}
	}
	if c.Vault.KeyHex != "" && len(c.Vault.KeyHex) != 64 {
		return fmt.Errorf("vault.key_hex must be 64 hex characters, got %d", len(c.Vault.KeyHex))
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	return nil
}
