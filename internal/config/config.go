package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Directory DirectoryConfig `json:"directory"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Auth      AuthConfig      `json:"auth"`
	Events    EventsConfig    `json:"events"`
	Exports   ExportsConfig   `json:"exports"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host            string        `json:"host" env:"SERVER_HOST"`
	Port            int           `json:"port" env:"SERVER_PORT"`
	ReadTimeout     time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout    time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	IdleTimeout     time.Duration `json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT"`
	AllowedOrigins  []string      `json:"allowed_origins" env:"SERVER_ALLOWED_ORIGINS" envSeparator:","`
	// SessionIdleTimeout is how long an untouched provisioning session is kept
	SessionIdleTimeout time.Duration `json:"session_idle_timeout" env:"SERVER_SESSION_IDLE_TIMEOUT"`
}

// DatabaseConfig represents database configuration. An empty host runs the
// portal on in-memory repositories.
type DatabaseConfig struct {
	Host           string        `json:"host" env:"DATABASE_HOST"`
	Port           int           `json:"port" env:"DATABASE_PORT"`
	User           string        `json:"user" env:"DATABASE_USER"`
	Password       string        `json:"password" env:"DATABASE_PASSWORD"`
	DBName         string        `json:"db_name" env:"DATABASE_DBNAME"`
	SSLMode        string        `json:"ssl_mode" env:"DATABASE_SSLMODE"`
	MaxConnections int           `json:"max_connections" env:"DATABASE_MAX_CONNECTIONS"`
	MaxIdleConns   int           `json:"max_idle_conns" env:"DATABASE_MAX_IDLE_CONNS"`
	MaxLifetime    time.Duration `json:"max_lifetime" env:"DATABASE_MAX_LIFETIME"`
	AutoMigrate    bool          `json:"auto_migrate" env:"DATABASE_AUTO_MIGRATE"`
}

// DirectoryConfig selects the catalog of companies, universities and careers.
// SeedPath is used when no database is configured.
type DirectoryConfig struct {
	SeedPath string `json:"seed_path" env:"DIRECTORY_SEED_PATH"`
}

// SchedulerConfig drives the daily evaluation sweep
type SchedulerConfig struct {
	Enabled bool          `json:"enabled" env:"SCHEDULER_ENABLED"`
	Spec    string        `json:"spec" env:"SCHEDULER_SPEC"`
	Timeout time.Duration `json:"timeout" env:"SCHEDULER_TIMEOUT"`
}

// AuthConfig verifies operator tokens. An empty secret disables verification.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" env:"AUTH_JWT_SECRET"`
	Issuer    string `json:"issuer" env:"AUTH_ISSUER"`
}

// EventsConfig forwards lifecycle events to SNS and to a webhook when set
type EventsConfig struct {
	SNSTopicARN  string `json:"sns_topic_arn" env:"EVENTS_SNS_TOPIC_ARN"`
	AWSRegion    string `json:"aws_region" env:"AWS_REGION"`
	WebhookURL   string `json:"webhook_url" env:"EVENTS_WEBHOOK_URL"`
	WebhookToken string `json:"webhook_token" env:"EVENTS_WEBHOOK_TOKEN"`
	// QueueSize bounds the events waiting for SNS or webhook delivery
	QueueSize int `json:"queue_size" env:"EVENTS_QUEUE_SIZE"`
}

// ExportsConfig archives project sheets to S3 when a bucket is set.
// Endpoint and the static keys point the client at an S3-compatible store such as MinIO.
type ExportsConfig struct {
	Bucket          string        `json:"bucket" env:"EXPORTS_BUCKET"`
	Prefix          string        `json:"prefix" env:"EXPORTS_PREFIX"`
	URLExpiry       time.Duration `json:"url_expiry" env:"EXPORTS_URL_EXPIRY"`
	Endpoint        string        `json:"endpoint" env:"EXPORTS_ENDPOINT"`
	UsePathStyle    bool          `json:"use_path_style" env:"EXPORTS_USE_PATH_STYLE"`
	AccessKeyID     string        `json:"access_key_id" env:"EXPORTS_ACCESS_KEY_ID"`
	SecretAccessKey string        `json:"secret_access_key" env:"EXPORTS_SECRET_ACCESS_KEY"`
}

// LoggingConfig
type LoggingConfig struct {
	Level       string `json:"level" env:"LOG_LEVEL"`
	Development bool   `json:"development" env:"LOG_DEVELOPMENT"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeout:        15 * time.Second,
			WriteTimeout:       30 * time.Second,
			IdleTimeout:        60 * time.Second,
			ShutdownTimeout:    10 * time.Second,
			AllowedOrigins:     []string{"*"},
			SessionIdleTimeout: 2 * time.Hour,
		},
		Database: DatabaseConfig{
			Port:           5432,
			DBName:         "internship_portal",
			SSLMode:        "disable",
			MaxConnections: 25,
			MaxIdleConns:   5,
			MaxLifetime:    5 * time.Minute,
		},
		Directory: DirectoryConfig{
			SeedPath: "seeds/catalog.yaml",
		},
		Scheduler: SchedulerConfig{
			Enabled: true,
			Spec:    "0 5 0 * * *",
			Timeout: 5 * time.Minute,
		},
		Auth: AuthConfig{
			Issuer: "internship-portal",
		},
		Events: EventsConfig{
			QueueSize: 256,
		},
		Exports: ExportsConfig{
			Prefix:    "project-sheets",
			URLExpiry: 15 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig loads configuration from file, then .env, then environment variables
func LoadConfig(configPath string) (*Config, error) {
	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("failed to parse config file: %w", err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// .env never overrides variables already present in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := env.Parse(config); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects configurations the binaries cannot start with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Scheduler.Enabled && c.Scheduler.Spec == "" {
		return errors.New("scheduler spec is required when the scheduler is enabled")
	}
	if c.Exports.Bucket != "" && c.Exports.URLExpiry <= 0 {
		return errors.New("exports url expiry must be positive")
	}
	if (c.Exports.AccessKeyID == "") != (c.Exports.SecretAccessKey == "") {
		return errors.New("exports access key id and secret access key must be set together")
	}
	return nil
}

// UsesDatabase reports whether a PostgreSQL database is configured
func (c *DatabaseConfig) UsesDatabase() bool {
	return c.Host != ""
}

// GetDatabaseURL returns the database connection string
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
