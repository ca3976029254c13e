// File: backend/services/impersonation-service/internal/config/loader.go
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from a yaml file and environment variables.
// Environment variables use the IMPERSONATION_ prefix with dots replaced by
// underscores, e.g. IMPERSONATION_JWT_SECRET.
func LoadConfig() (*Config, error) {
	setDefaults()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/impersonation-service")
	}

	viper.SetEnvPrefix("IMPERSONATION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Missing file is fine, env vars alone can carry the config.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Environment == "" {
		cfg.Environment = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "10s")
	viper.SetDefault("server.write_timeout", "10s")
	viper.SetDefault("server.idle_timeout", "60s")
	viper.SetDefault("server.shutdown_timeout", "15s")

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.auto_migrate", false)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topic", "crm.impersonation.events")

	viper.SetDefault("jwt.issuer", "crm-platform")
	viper.SetDefault("jwt.audience", "crm-platform")

	// The fixed 2 hour session bound. Not a tunable timeout knob; changing it
	// changes the token lifetime as well.
	viper.SetDefault("session.ttl", "2h")
	viper.SetDefault("session.sweep_interval", "5m")

	viper.SetDefault("audit.queue_size", 1024)
	viper.SetDefault("audit.skip_endpoints", []string{
		"/api/v1/impersonation/active",
		"/api/v1/impersonation/end",
	})

	viper.SetDefault("step_up.enabled", true)
	viper.SetDefault("step_up.window", "60m")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}
