package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"qacompare/domain/qa"
	"qacompare/internal"
	"qacompare/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Fit      FitConfig
	Ratio    RatioConfig
	Output   OutputConfig
	LogLevel internal.LogLevel
}

// DatabaseConfig holds run repository connection settings. An empty URL
// disables persistence.
type DatabaseConfig struct {
	URL    string
	Driver string // postgres or sqlite
}

// Enabled reports whether runs should be persisted.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// ServerConfig holds summary server settings
type ServerConfig struct {
	Port string
}

// FitConfig holds slice fitting settings
type FitConfig struct {
	Workers     int
	MinWeight   float64
	Convergence qa.ConvergencePolicy
}

// RatioConfig holds binomial ratio settings
type RatioConfig struct {
	ZeroBins qa.ZeroBinPolicy
}

// OutputConfig holds artifact locations
type OutputConfig struct {
	SummaryFile string
}

// Load reads .env (if present) and the environment, and validates the result.
func Load() (*Config, error) {
	// A missing .env is fine; the environment alone is enough.
	_ = godotenv.Load()
	return FromEnv()
}

// LoadFile reads a specific env file before the environment.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(path); err != nil {
		return nil, errors.Wrapf(errors.ConfigInvalid(err.Error()), "failed to read env file %s", path)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	fitConfig, err := loadFitConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load fit configuration")
	}
	config.Fit = *fitConfig

	config.Server = ServerConfig{Port: getEnvOrDefault("PORT", "8080")}
	config.Output = OutputConfig{SummaryFile: getEnvOrDefault("QA_SUMMARY_FILE", "")}

	config.Ratio = RatioConfig{ZeroBins: qa.NaiveDivide}
	if getEnvBoolOrDefault("RATIO_FILL_ZERO", false) {
		config.Ratio.ZeroBins = qa.FillDefault
	}

	level, ok := internal.ParseLogLevel(getEnvOrDefault("LOG_LEVEL", "INFO"))
	if !ok {
		return nil, errors.ConfigInvalid("LOG_LEVEL must be one of ERROR, WARN, INFO, DEBUG, TRACE")
	}
	config.LogLevel = level

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	driver := strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", "postgres"))
	switch driver {
	case "postgres", "sqlite":
	default:
		return nil, errors.ConfigInvalid("DATABASE_DRIVER must be postgres or sqlite")
	}
	return &DatabaseConfig{URL: url, Driver: driver}, nil
}

func loadFitConfig() (*FitConfig, error) {
	policy, err := qa.ParseConvergencePolicy(os.Getenv("FIT_CONVERGENCE"))
	if err != nil {
		return nil, errors.ConfigInvalid(err.Error())
	}
	return &FitConfig{
		Workers:     getEnvIntOrDefault("FIT_WORKERS", 1),
		MinWeight:   getEnvFloatOrDefault("FIT_MIN_WEIGHT", qa.MinSliceWeight),
		Convergence: policy,
	}, nil
}

func validateConfig(config *Config) error {
	if config.Fit.Workers < 1 {
		return errors.ConfigInvalid("FIT_WORKERS must be at least 1")
	}
	if config.Fit.MinWeight < 0 {
		return errors.ConfigInvalid("FIT_MIN_WEIGHT must not be negative")
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
