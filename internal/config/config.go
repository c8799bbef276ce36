package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	AWS       AWSConfig
	Storage   StorageConfig
	Processor ProcessorConfig
	API       APIConfig
	Log       LogConfig
}

type AWSConfig struct {
	Region    string
	AccessKey string
	SecretKey string
}

type StorageConfig struct {
	Bucket string
}

type ProcessorConfig struct {
	// LogsAPIEndpoint is the base URL of the log retrieval endpoint
	LogsAPIEndpoint string
	// CopyAllBuilds copies logs for branch builds too, not only PR builds
	CopyAllBuilds bool
	// Statuses are the build statuses that trigger a log copy
	Statuses []string
}

type APIConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	IdleTimeout     time.Duration
	Environment     string
}

type LogConfig struct {
	Level  string
	Format string
}

// DefaultStatuses are the terminal CodeBuild statuses
var DefaultStatuses = []string{"SUCCEEDED", "FAILED", "FAULT", "STOPPED", "TIMED_OUT"}

var (
	ErrMissingBucket   = errors.New("BUCKET_NAME is required")
	ErrMissingEndpoint = errors.New("BUILD_LOGS_API_ENDPOINT is required")
)

// Load creates a Config instance from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		AWS:       loadAWSConfig(),
		Storage:   loadStorageConfig(),
		Processor: loadProcessorConfig(),
		API:       loadAPIConfig(),
		Log:       loadLogConfig(),
	}

	if cfg.Storage.Bucket == "" {
		return nil, ErrMissingBucket
	}

	return cfg, nil
}

// Validate checks the settings only the build event processor needs
func (p ProcessorConfig) Validate() error {
	if p.LogsAPIEndpoint == "" {
		return ErrMissingEndpoint
	}
	if len(p.Statuses) == 0 {
		return fmt.Errorf("BUILD_STATUSES must name at least one status")
	}
	return nil
}

// HandlesStatus reports whether a build in the given status should be processed
func (p ProcessorConfig) HandlesStatus(status string) bool {
	for _, s := range p.Statuses {
		if strings.EqualFold(s, status) {
			return true
		}
	}
	return false
}

func loadAWSConfig() AWSConfig {
	return AWSConfig{
		Region:    getEnvOrDefault("AWS_REGION", getEnvOrDefault("AWS_DEFAULT_REGION", "us-east-1")),
		AccessKey: getEnvOrDefault("AWS_ACCESS_KEY_ID", ""),
		SecretKey: getEnvOrDefault("AWS_SECRET_ACCESS_KEY", ""),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Bucket: getEnvOrDefault("BUCKET_NAME", ""),
	}
}

func loadProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		LogsAPIEndpoint: getEnvOrDefault("BUILD_LOGS_API_ENDPOINT", ""),
		CopyAllBuilds:   getEnvBoolOrDefault("COPY_ALL_BUILDS", false),
		Statuses:        getEnvListOrDefault("BUILD_STATUSES", DefaultStatuses),
	}
}

func loadAPIConfig() APIConfig {
	return APIConfig{
		Port:            getEnvOrDefault("API_PORT", "8080"),
		ReadTimeout:     getEnvDurationOrDefault("API_READ_TIMEOUT", 5*time.Second),
		WriteTimeout:    getEnvDurationOrDefault("API_WRITE_TIMEOUT", 10*time.Second),
		ShutdownTimeout: getEnvDurationOrDefault("API_SHUTDOWN_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDurationOrDefault("API_IDLE_TIMEOUT", 60*time.Second),
		Environment:     getEnvOrDefault("API_ENVIRONMENT", "development"),
	}
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

// Helper functions for environment variables
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	strValue := getEnvOrDefault(key, "")
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	strValue := getEnvOrDefault(key, "")
	if strValue == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(strValue, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnvOrDefault(key, "")
	if strValue == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(strValue)
	if err != nil {
		return defaultValue
	}
	return value
}
