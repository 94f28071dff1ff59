package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server"`

	// MongoDB configuration
	Mongo MongoConfig `json:"mongo"`

	// Tuya cloud API configuration
	Tuya TuyaConfig `json:"tuya"`

	// Device registry configuration
	Registry RegistryConfig `json:"registry"`

	// Scheduler configuration
	Scheduler SchedulerConfig `json:"scheduler"`

	// Logging configuration
	Logging LoggingConfig `json:"logging"`

	// CORS configuration
	CORS CORSConfig `json:"cors"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoConfig holds MongoDB-related configuration
type MongoConfig struct {
	URI    string `json:"uri"`
	DBName string `json:"db_name"`
}

// TuyaConfig holds Tuya cloud API configuration
type TuyaConfig struct {
	AccessID     string        `json:"access_id"`
	AccessSecret string        `json:"-"`
	Endpoint     string        `json:"endpoint"`
	HTTPTimeout  time.Duration `json:"http_timeout"`
	TokenTTL     time.Duration `json:"token_ttl"`
}

// RegistryConfig holds the device registry configuration
type RegistryConfig struct {
	Path string `json:"path"`
}

// SchedulerConfig holds schedule executor configuration
type SchedulerConfig struct {
	// RetryOnFailure leaves the last-run marker untouched when an actuation
	// command fails, so the next due-check retries the same occurrence. The
	// default matches the original contract: a failed actuation is logged
	// and not retried.
	RetryOnFailure bool `json:"retry_on_failure"`
}

// CollectorConfig holds poll-loop configuration for the collector service
type CollectorConfig struct {
	Interval time.Duration `json:"interval"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level        string `json:"level"`
	Format       string `json:"format"` // json or text
	Output       string `json:"output"` // stdout or stderr
	EnableCaller bool   `json:"enable_caller"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins   []string `json:"allowed_origins"`
	AllowedMethods   []string `json:"allowed_methods"`
	AllowedHeaders   []string `json:"allowed_headers"`
	ExposedHeaders   []string `json:"exposed_headers"`
	AllowCredentials bool     `json:"allow_credentials"`
	MaxAge           int      `json:"max_age"`
}

// ApiServiceConfig is the configuration for the dashboard API service
type ApiServiceConfig struct {
	Config
}

// CollectorServiceConfig is the configuration for the polling collector
type CollectorServiceConfig struct {
	Mongo     MongoConfig     `json:"mongo"`
	Tuya      TuyaConfig      `json:"tuya"`
	Registry  RegistryConfig  `json:"registry"`
	Collector CollectorConfig `json:"collector"`
	Logging   LoggingConfig   `json:"logging"`
}

// LoadApiConfig loads configuration for the API service
func LoadApiConfig() (*ApiServiceConfig, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		// Environment variables can also be set directly
	}

	cfg := &ApiServiceConfig{
		Config: Config{
			Server: ServerConfig{
				Port:         getEnv("PORT", "9002"),
				ReadTimeout:  getDuration("READ_TIMEOUT", 30*time.Second),
				WriteTimeout: getDuration("WRITE_TIMEOUT", 30*time.Second),
				IdleTimeout:  getDuration("IDLE_TIMEOUT", 120*time.Second),
			},
			Mongo:     loadMongoConfig(),
			Tuya:      loadTuyaConfig(),
			Registry:  loadRegistryConfig(),
			Scheduler: SchedulerConfig{RetryOnFailure: getBool("SCHEDULER_RETRY_ON_FAILURE", false)},
			Logging:   loadLoggingConfig(),
			CORS: CORSConfig{
				AllowedOrigins:   getStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
				AllowedMethods:   getStringSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
				AllowedHeaders:   getStringSlice("CORS_ALLOWED_HEADERS", []string{"Origin", "Content-Type", "Accept"}),
				ExposedHeaders:   getStringSlice("CORS_EXPOSED_HEADERS", []string{"Content-Length"}),
				AllowCredentials: getBool("CORS_ALLOW_CREDENTIALS", true),
				MaxAge:           getInt("CORS_MAX_AGE", 43200), // 12 hours
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadCollectorConfig loads configuration for the collector service
func LoadCollectorConfig() (*CollectorServiceConfig, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	if err := godotenv.Load(); err != nil {
		// Environment variables can also be set directly
	}

	cfg := &CollectorServiceConfig{
		Mongo:     loadMongoConfig(),
		Tuya:      loadTuyaConfig(),
		Registry:  loadRegistryConfig(),
		Collector: CollectorConfig{Interval: getDuration("COLLECT_INTERVAL", 10*time.Second)},
		Logging:   loadLoggingConfig(),
	}

	if err := validateMongoAndTuya(cfg.Mongo, cfg.Tuya); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if cfg.Collector.Interval <= 0 {
		return nil, fmt.Errorf("COLLECT_INTERVAL must be positive")
	}

	return cfg, nil
}

func loadMongoConfig() MongoConfig {
	return MongoConfig{
		URI:    getRequiredEnv("MONGODB_URI"),
		DBName: getEnv("MONGODB_DB", "tuya_energy"),
	}
}

func loadTuyaConfig() TuyaConfig {
	return TuyaConfig{
		AccessID:     getRequiredEnv("TUYA_ACCESS_ID"),
		AccessSecret: getRequiredEnv("TUYA_ACCESS_SECRET"),
		Endpoint:     getEnv("TUYA_API_ENDPOINT", "https://openapi.tuyaeu.com"),
		HTTPTimeout:  getDuration("TUYA_HTTP_TIMEOUT", 15*time.Second),
		TokenTTL:     getDuration("TUYA_TOKEN_TTL", 55*time.Second),
	}
}

func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{Path: getEnv("DEVICES_PATH", "devices.json")}
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:        getEnv("LOG_LEVEL", "info"),
		Format:       getEnv("LOG_FORMAT", "text"),
		Output:       getEnv("LOG_OUTPUT", "stdout"),
		EnableCaller: getBool("LOG_ENABLE_CALLER", false),
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	return validateMongoAndTuya(c.Mongo, c.Tuya)
}

func validateMongoAndTuya(mongo MongoConfig, tuya TuyaConfig) error {
	if mongo.URI == "" {
		return fmt.Errorf("MONGODB_URI is required")
	}
	if tuya.AccessID == "" || tuya.AccessSecret == "" {
		return fmt.Errorf("TUYA_ACCESS_ID and TUYA_ACCESS_SECRET are required")
	}
	if tuya.TokenTTL <= 0 {
		return fmt.Errorf("TUYA_TOKEN_TTL must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return stripOuterQuotes(value)
	}
	return defaultValue
}

func getRequiredEnv(key string) string {
	value := os.Getenv(key)
	if value == "" {
		log.Fatalf("missing required environment variable: %s", key)
	}
	return stripOuterQuotes(value)
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return intValue
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "1" || value == "true" || value == "TRUE" {
		return true
	}
	if value == "0" || value == "false" || value == "FALSE" {
		return false
	}
	log.Fatalf("invalid %s: %q (expected true/false or 1/0)", key, value)
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		log.Fatalf("invalid %s: %v", key, err)
	}
	return duration
}

func getStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := make([]string, 0)
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}

// Secrets pasted into .env files often keep their surrounding quotes.
func stripOuterQuotes(val string) string {
	val = strings.TrimSpace(val)
	if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
		return val[1 : len(val)-1]
	}
	return val
}
