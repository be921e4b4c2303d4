package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service  ServiceConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Mail     MailConfig
	Jenkins  JenkinsConfig
	Approver ApproverConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string

	// External base URL used when composing links in notifications
	BaseURL string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
}

// RedisConfig holds fix-cache settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string

	// TTL for cached available-fix lists
	FixTTL time.Duration
}

// MailConfig holds outbound mail settings
type MailConfig struct {
	Enabled bool
	Host    string
	Port    int
	From    string
}

// JenkinsConfig holds CI server settings. An empty URL disables all
// job operations; callers treat that as a soft skip.
type JenkinsConfig struct {
	URL   string
	User  string
	Token string

	// Directory holding the service patch tooling on the build agents
	ScriptDir string
}

// ApproverConfig points at the YAML file seeding approver-group rules
type ApproverConfig struct {
	RulesFile string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
			BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("POSTGRES_HOST", "localhost"),
			Port:        getEnvInt("POSTGRES_PORT", 5432),
			Database:    getEnv("POSTGRES_DB", "patchhub"),
			User:        getEnv("POSTGRES_USER", "patchhub"),
			Password:    getEnv("POSTGRES_PASSWORD", "patchhub"),
			MaxConns:    getEnvInt("POSTGRES_MAX_CONNS", 20),
			MinConns:    getEnvInt("POSTGRES_MIN_CONNS", 2),
			MaxIdleTime: getEnvDuration("POSTGRES_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("POSTGRES_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			FixTTL:   getEnvDuration("REDIS_FIX_TTL", 15*time.Minute),
		},
		Mail: MailConfig{
			Enabled: getEnvBool("MAIL_ENABLED", true),
			Host:    getEnv("SMTP_HOST", "localhost"),
			Port:    getEnvInt("SMTP_PORT", 25),
			From:    getEnv("MAIL_FROM", "patchhub@localhost"),
		},
		Jenkins: JenkinsConfig{
			URL:       getEnv("JENKINS_URL", ""),
			User:      getEnv("JENKINS_USER", ""),
			Token:     getEnv("JENKINS_TOKEN", ""),
			ScriptDir: getEnv("SP_SCRIPT_DIR", "/opt/sp"),
		},
		Approver: ApproverConfig{
			RulesFile: getEnv("APPROVER_RULES_FILE", ""),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Mail.Enabled && c.Mail.From == "" {
		return fmt.Errorf("mail from address is required when mail is enabled")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisAddr returns the host:port address of the Redis server
func (c *Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
