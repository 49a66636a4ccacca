// Package config loads application configuration from file and
// environment, with sane defaults for local development.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/shopmesh/shopmesh/internal/agent"
	"github.com/shopmesh/shopmesh/internal/api"
	"github.com/shopmesh/shopmesh/internal/auth"
	"github.com/shopmesh/shopmesh/internal/cache"
	"github.com/shopmesh/shopmesh/internal/database"
	"github.com/shopmesh/shopmesh/internal/llm"
	"github.com/shopmesh/shopmesh/internal/observability"
)

// Config holds the complete application configuration
type Config struct {
	API      api.Config                  `mapstructure:"api"`
	Auth     auth.Config                 `mapstructure:"auth"`
	Cache    cache.RedisConfig           `mapstructure:"cache"`
	Database database.Config             `mapstructure:"database"`
	LLM      llm.Config                  `mapstructure:"llm"`
	Agent    agent.Config                `mapstructure:"agent"`
	Logging  observability.LoggingConfig `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	configFile := os.Getenv("SHOPMESH_CONFIG_FILE")
	if configFile == "" {
		configFile = "configs/config.yaml"
	}
	v.SetConfigFile(configFile)

	// Environment variables prefixed with SHOPMESH_ override the file
	v.SetEnvPrefix("SHOPMESH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// Config file is not required if environment variables are set
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// API defaults
	v.SetDefault("api.listen_address", ":8080")
	v.SetDefault("api.read_timeout", 30*time.Second)
	v.SetDefault("api.write_timeout", 60*time.Second)
	v.SetDefault("api.idle_timeout", 90*time.Second)
	v.SetDefault("api.enable_cors", true)
	v.SetDefault("api.request_timeout", 30*time.Second)
	v.SetDefault("api.rate_limit.enabled", true)
	v.SetDefault("api.rate_limit.rps", 10)
	v.SetDefault("api.rate_limit.burst", 20)

	// Auth defaults
	v.SetDefault("auth.session_cookie_name", "shopmesh_session")
	v.SetDefault("auth.session_ttl", 24*time.Hour)

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.database", "shopmesh")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	// Cache defaults
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.max_retries", 3)
	v.SetDefault("cache.dial_timeout", 5*time.Second)
	v.SetDefault("cache.read_timeout", 3*time.Second)
	v.SetDefault("cache.write_timeout", 3*time.Second)
	v.SetDefault("cache.pool_size", 10)
	v.SetDefault("cache.min_idle_conns", 2)
	v.SetDefault("cache.pool_timeout", 4*time.Second)

	// LLM defaults
	v.SetDefault("llm.chat_model", "gpt-4o-mini")
	v.SetDefault("llm.embedding_model", "text-embedding-3-large")
	v.SetDefault("llm.embedding_dimensions", 1024)

	// Agent defaults
	v.SetDefault("agent.max_steps", 5)
	v.SetDefault("agent.request_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
}

// Validate checks that required configuration is present
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("llm.api_key is required (set SHOPMESH_LLM_API_KEY)")
	}
	if c.Database.DSN == "" && c.Database.Username == "" {
		return fmt.Errorf("database credentials are required")
	}
	return nil
}
