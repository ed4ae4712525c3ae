package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds all configuration for the feed engine
type Config struct {
	Database DatabaseConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Hub      HubConfig
	Graph    GraphConfig
	Feed     FeedConfig
	Logging  LoggingConfig
	Service  ServiceConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// KafkaConfig holds Kafka configuration
type KafkaConfig struct {
	Brokers         []string
	GroupID         string
	TopicRawEvents  string
	TopicBackfill   string
	TopicNormalized string
}

// RedisConfig holds Redis configuration for the identity cache
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// HubConfig holds hub content service client configuration
type HubConfig struct {
	URL     string
	Timeout time.Duration
}

// GraphConfig holds social graph service client configuration
type GraphConfig struct {
	URL           string
	Timeout       time.Duration
	PowerBadgeTTL time.Duration
}

// FeedConfig holds feed query configuration
type FeedConfig struct {
	DefaultPageSize int
	MaxPageSize     int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Name string
	Port string
}

// Result is fx.Out struct for providing config dependencies
type Result struct {
	fx.Out

	Config         *Config
	DatabaseConfig *DatabaseConfig
	KafkaConfig    *KafkaConfig
	RedisConfig    *RedisConfig
	HubConfig      *HubConfig
	GraphConfig    *GraphConfig
	FeedConfig     *FeedConfig
	LoggingConfig  *LoggingConfig
	ServiceConfig  *ServiceConfig
}

// Out returns fx-compatible config result
func Out() (Result, error) {
	cfg, err := Load()
	if err != nil {
		return Result{}, err
	}

	return Result{
		Config:         cfg,
		DatabaseConfig: &cfg.Database,
		KafkaConfig:    &cfg.Kafka,
		RedisConfig:    &cfg.Redis,
		HubConfig:      &cfg.Hub,
		GraphConfig:    &cfg.Graph,
		FeedConfig:     &cfg.Feed,
		LoggingConfig:  &cfg.Logging,
		ServiceConfig:  &cfg.Service,
	}, nil
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DATABASE_HOST", "localhost"),
			Port:     getEnv("DATABASE_PORT", "5432"),
			User:     getEnv("DATABASE_USER", "nook_user"),
			Password: getEnv("DATABASE_PASSWORD", "nook_pass"),
			DBName:   getEnv("DATABASE_NAME", "nook_engine"),
			SSLMode:  getEnv("DATABASE_SSLMODE", "disable"),
		},
		Kafka: KafkaConfig{
			Brokers:         strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			GroupID:         getEnv("KAFKA_GROUP_ID", "nook-engine-group"),
			TopicRawEvents:  getEnv("KAFKA_TOPIC_RAW_EVENTS", "farcaster.events"),
			TopicBackfill:   getEnv("KAFKA_TOPIC_BACKFILL", "farcaster.events.backfill"),
			TopicNormalized: getEnv("KAFKA_TOPIC_NORMALIZED", "nook.events.normalized"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Hub: HubConfig{
			URL:     getEnv("HUB_SERVICE_URL", "http://farcaster-reader:8081"),
			Timeout: getEnvDuration("HUB_SERVICE_TIMEOUT", 30*time.Second),
		},
		Graph: GraphConfig{
			URL:           getEnv("GRAPH_SERVICE_URL", "http://social-graph:8082"),
			Timeout:       getEnvDuration("GRAPH_SERVICE_TIMEOUT", 10*time.Second),
			PowerBadgeTTL: getEnvDuration("POWER_BADGE_TTL", 30*time.Minute),
		},
		Feed: FeedConfig{
			DefaultPageSize: getEnvInt("FEED_DEFAULT_PAGE_SIZE", 25),
			MaxPageSize:     getEnvInt("FEED_MAX_PAGE_SIZE", 100),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Service: ServiceConfig{
			Name: getEnv("SERVICE_NAME", "nook-engine"),
			Port: getEnv("SERVICE_PORT", "8084"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("DATABASE_HOST is required")
	}

	if c.Database.User == "" {
		return fmt.Errorf("DATABASE_USER is required")
	}

	if c.Database.DBName == "" {
		return fmt.Errorf("DATABASE_NAME is required")
	}

	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required")
	}

	if c.Feed.DefaultPageSize <= 0 {
		return fmt.Errorf("FEED_DEFAULT_PAGE_SIZE must be positive")
	}

	if c.Feed.MaxPageSize < c.Feed.DefaultPageSize {
		return fmt.Errorf("FEED_MAX_PAGE_SIZE must be >= FEED_DEFAULT_PAGE_SIZE")
	}

	return nil
}

// GetDSN returns database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvInt gets environment variable as int with default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvDuration gets environment variable as duration with default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
