// Package config provides configuration management for the application.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreBackendBadger   = "badger"
	StoreBackendPostgres = "postgres"
	StoreBackendMemory   = "memory"
)

// Config holds all configuration for the application.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Snapshot SnapshotConfig
	Cache    CacheConfig
	RabbitMQ RabbitMQConfig
	YouTube  YouTubeConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int
	ShutdownTimeout time.Duration
	APIKeys         []string
}

// DatabaseConfig contains database connection configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type DatabaseConfig struct {
	Host           string
	Name           string
	User           string
	Password       string
	SSLMode        string
	Port           int
	MaxConnections int
	MinConnections int
	MaxIdleTime    time.Duration
	MaxLifetime    time.Duration
}

// StoreConfig selects where snapshots are persisted.
type StoreConfig struct {
	Backend   string
	BadgerDir string
}

// SnapshotConfig contains paste parsing and matching settings.
type SnapshotConfig struct {
	MaxPasteSize   int
	FuzzyThreshold float64
}

// CacheConfig contains the snapshot read cache settings.
type CacheConfig struct {
	Enabled bool
	SizeMB  int
	TTL     time.Duration
}

// RabbitMQConfig contains RabbitMQ connection and exchange configuration.
//
//nolint:govet // fieldalignment: Accept minor memory overhead for better readability
type RabbitMQConfig struct {
	Enabled          bool
	Host             string
	User             string
	Password         string
	Exchange         string
	RoutingKeyPrefix string
	Port             int
}

// YouTubeConfig contains YouTube Data API settings. An empty APIKey disables the live source.
type YouTubeConfig struct {
	APIKey     string
	BaseURL    string
	MaxResults int
}

// MetricsConfig contains Prometheus exposition settings.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string
	File  string
}

// Load loads configuration from file and environment variables.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix("APP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found, use defaults and env vars
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// Validate checks invariants that defaults alone cannot guarantee.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	switch c.Store.Backend {
	case StoreBackendBadger, StoreBackendPostgres, StoreBackendMemory:
	default:
		return fmt.Errorf("unknown store.backend %q", c.Store.Backend)
	}

	if c.Store.Backend == StoreBackendBadger && c.Store.BadgerDir == "" {
		return fmt.Errorf("store.badgerdir is required for the badger backend")
	}

	if c.Snapshot.MaxPasteSize <= 0 {
		return fmt.Errorf("snapshot.maxpastesize must be positive")
	}

	if c.Snapshot.FuzzyThreshold <= 0 || c.Snapshot.FuzzyThreshold > 1 {
		return fmt.Errorf("snapshot.fuzzythreshold must be in (0, 1], got %v", c.Snapshot.FuzzyThreshold)
	}

	return nil
}

// ConnString builds a libpq-style connection string for the database section.
func (d DatabaseConfig) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL builds a postgres:// URL, the form golang-migrate expects.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdowntimeout", 30*time.Second)
	viper.SetDefault("server.apikeys", []string{})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.name", "snapshots")
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.maxconnections", 10)
	viper.SetDefault("database.minconnections", 2)
	viper.SetDefault("database.maxidletime", 10*time.Minute)
	viper.SetDefault("database.maxlifetime", 1*time.Hour)

	// Store
	viper.SetDefault("store.backend", StoreBackendBadger)
	viper.SetDefault("store.badgerdir", "./data/snapshots")

	// Snapshot
	viper.SetDefault("snapshot.maxpastesize", 1048576) // 1MB
	viper.SetDefault("snapshot.fuzzythreshold", 0.7)

	// Cache
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.sizemb", 16)
	viper.SetDefault("cache.ttl", 5*time.Minute)

	// RabbitMQ
	viper.SetDefault("rabbitmq.enabled", false)
	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", 5672)
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.password", "guest")
	viper.SetDefault("rabbitmq.exchange", "performance.snapshots")
	viper.SetDefault("rabbitmq.routingkeyprefix", "snapshot")

	// YouTube
	viper.SetDefault("youtube.apikey", "")
	viper.SetDefault("youtube.baseurl", "")
	viper.SetDefault("youtube.maxresults", 50)

	// Metrics
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")

	// Logging
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.file", "")
}
