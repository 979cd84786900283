package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvConfigFile names the environment variable holding the optional config file path.
const EnvConfigFile = "CONCRETEOCI_CONFIG"

// Config holds all configuration for the application.
type Config struct {
	Port           int           `yaml:"port" toml:"port" validate:"min=1,max=65535"`
	Namespace      string        `yaml:"namespace" toml:"namespace" validate:"required"`
	LogLevel       string        `yaml:"logLevel" toml:"logLevel" validate:"oneof=debug info warn error"`
	LogFormat      string        `yaml:"logFormat" toml:"logFormat" validate:"oneof=text json"`
	TTLInterval    time.Duration `yaml:"ttlInterval" toml:"ttlInterval" validate:"gt=0"`
	RequestTimeout time.Duration `yaml:"requestTimeout" toml:"requestTimeout" validate:"gt=0"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:           8080,
		Namespace:      "namespace_name",
		LogLevel:       "info",
		LogFormat:      "text",
		TTLInterval:    time.Minute,
		RequestTimeout: 30 * time.Second,
	}
}

// Load builds the configuration from defaults, then the file named by
// CONCRETEOCI_CONFIG if set, then environment variables, and validates the result.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(EnvConfigFile))
}

// LoadFile is Load with an explicit file path. An empty path skips the file.
// Files ending in .toml are decoded as TOML, anything else as YAML.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field against its constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "read config file %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		err = toml.Unmarshal(data, c)
	default:
		err = yaml.Unmarshal(data, c)
	}
	if err != nil {
		return errors.Wrapf(err, "decode config file %s", path)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnvAsInt("CONCRETEOCI_PORT", c.Port)
	c.Namespace = getEnv("CONCRETEOCI_NAMESPACE", c.Namespace)
	c.LogLevel = strings.ToLower(getEnv("CONCRETEOCI_LOG_LEVEL", c.LogLevel))
	c.LogFormat = strings.ToLower(getEnv("CONCRETEOCI_LOG_FORMAT", c.LogFormat))
	c.TTLInterval = getEnvAsDuration("CONCRETEOCI_TTL_INTERVAL", c.TTLInterval)
	c.RequestTimeout = getEnvAsDuration("CONCRETEOCI_REQUEST_TIMEOUT", c.RequestTimeout)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

// getEnvAsInt parses an environment variable as an integer.
// If the environment variable is not set, not a valid integer, or is empty,
// it returns the provided fallback value.
func getEnvAsInt(key string, fallback int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := strconv.Atoi(valueStr); err == nil {
			return value
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		if value, err := time.ParseDuration(valueStr); err == nil {
			return value
		}
	}
	return fallback
}
