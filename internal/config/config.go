package config

import (
	"os"
	"strconv"
	"time"

	apperrors "talentbridge/internal/errors"
)

// Config represents the complete engine configuration
type Config struct {
	Database   DatabaseConfig
	Classifier ClassifierConfig
	Mail       MailConfig
	Billing    BillingConfig
	Server     ServerConfig
	Scheduler  SchedulerConfig
	Log        LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// ClassifierConfig holds the response-classifier settings
type ClassifierConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
}

// MailConfig holds transactional mail provider settings
type MailConfig struct {
	BaseURL string
	APIKey  string
	From    string
	Timeout time.Duration
}

// BillingConfig holds invoicing provider settings
type BillingConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// SchedulerConfig holds background scheduler settings
type SchedulerConfig struct {
	Interval    time.Duration
	Concurrency int
}

// LogConfig holds logging settings
type LogConfig struct {
	JSON  bool
	Debug bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	classifierConfig, err := loadClassifierConfig()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load classifier configuration")
	}
	config.Classifier = *classifierConfig

	config.Mail = *loadMailConfig()
	config.Billing = *loadBillingConfig()
	config.Server = *loadServerConfig()
	config.Scheduler = *loadSchedulerConfig()
	config.Log = *loadLogConfig()

	if err := validateConfig(config); err != nil {
		return nil, apperrors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, apperrors.ConfigInvalid("DATABASE_URL is required")
	}

	return &DatabaseConfig{
		URL:          url,
		MaxOpenConns: getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns: getEnvIntOrDefault("DB_MAX_IDLE_CONNS", 5),
	}, nil
}

func loadClassifierConfig() (*ClassifierConfig, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, apperrors.ConfigInvalid("OPENAI_API_KEY is required")
	}

	return &ClassifierConfig{
		APIKey:      apiKey,
		BaseURL:     getEnvOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		Model:       getEnvOrDefault("CLASSIFIER_MODEL", "gpt-4o-mini"),
		Timeout:     getEnvDurationOrDefault("CLASSIFIER_TIMEOUT", 60*time.Second),
		Temperature: getEnvFloatOrDefault("CLASSIFIER_TEMPERATURE", 0.0),
		MaxTokens:   getEnvIntOrDefault("CLASSIFIER_MAX_TOKENS", 1024),
	}, nil
}

func loadMailConfig() *MailConfig {
	return &MailConfig{
		BaseURL: getEnvOrDefault("MAIL_BASE_URL", ""),
		APIKey:  getEnvOrDefault("MAIL_API_KEY", ""),
		From:    getEnvOrDefault("MAIL_FROM", "checkins@talentbridge.io"),
		Timeout: getEnvDurationOrDefault("MAIL_TIMEOUT", 15*time.Second),
	}
}

func loadBillingConfig() *BillingConfig {
	return &BillingConfig{
		BaseURL: getEnvOrDefault("BILLING_BASE_URL", ""),
		APIKey:  getEnvOrDefault("BILLING_API_KEY", ""),
		Timeout: getEnvDurationOrDefault("BILLING_TIMEOUT", 30*time.Second),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "debug"),
	}
}

func loadSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		Interval:    getEnvDurationOrDefault("SCHEDULER_INTERVAL", time.Hour),
		Concurrency: getEnvIntOrDefault("SCHEDULER_CONCURRENCY", 4),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		JSON:  getEnvBoolOrDefault("LOG_JSON", true),
		Debug: getEnvBoolOrDefault("LOG_DEBUG", false),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return apperrors.ConfigInvalid("database URL is required")
	}
	if config.Classifier.APIKey == "" {
		return apperrors.ConfigInvalid("classifier API key is required")
	}
	if config.Scheduler.Interval < time.Minute {
		return apperrors.ConfigInvalid("scheduler interval must be at least one minute")
	}
	if config.Scheduler.Concurrency < 1 {
		return apperrors.ConfigInvalid("scheduler concurrency must be positive")
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
