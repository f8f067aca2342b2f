// Package config loads application configuration from a YAML file,
// environment variables and a local .env file, in that order of
// precedence (environment wins).
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      App      `mapstructure:"app"`
	Database Database `mapstructure:"database"`
	Search   Search   `mapstructure:"search"`
}

// App holds general application configuration.
type App struct {
	LogLevel string `mapstructure:"log_level"`
}

// Database holds database configuration.
type Database struct {
	ConnectionString string `mapstructure:"connection_string"`
	MaxConnections   int    `mapstructure:"max_connections"`
	IdleConnections  int    `mapstructure:"idle_connections"`
}

// Search holds the search core's tunables.
type Search struct {
	DefaultLocale string `mapstructure:"default_locale"`
	MinTermLength int    `mapstructure:"min_term_length"`
}

var globalConfig *Config

// Load reads configuration into the process-wide Config. Subsequent calls
// return the already-loaded value.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists (for local development)
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".searchcore")
		viper.SetConfigType("yaml")
	}

	setDefaults()

	viper.SetEnvPrefix("searchcore")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	globalConfig = config

	return config, nil
}

// Get returns the loaded configuration, loading defaults if Load was
// never called explicitly.
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load("")
		if err != nil {
			return &Config{}
		}

		return cfg
	}

	return globalConfig
}

func setDefaults() {
	viper.SetDefault("app.log_level", "info")

	viper.SetDefault("database.connection_string", "postgres://localhost:5432/searchcore?sslmode=disable")
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.idle_connections", 5)

	viper.SetDefault("search.default_locale", "en")
	viper.SetDefault("search.min_term_length", 0)
}
