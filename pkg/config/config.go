// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/illustrious/cloud/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	LogLevel observability.LogLevel
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	AppURL          string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AuthConfig holds identity-provider (OIDC) configuration
type AuthConfig struct {
	ProviderName string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
	StateTTL     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:   loadServerConfig(),
		Database: loadDatabaseConfig(),
		Auth:     loadAuthConfig(),
		LogLevel: observability.ParseLogLevel(getEnv("ILC_LOG_LEVEL", "info")),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("ILC_HOST", "0.0.0.0"),
		Port:            getEnv("ILC_PORT", "8080"),
		AppURL:          getEnv("ILC_APP_URL", "http://localhost:8080"),
		ReadTimeout:     getEnvDuration("ILC_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("ILC_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("ILC_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("ILC_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("ILC_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:             getEnv("ILC_POSTGRES_URL", ""),
		MaxOpenConns:    getEnvInt("ILC_POSTGRES_MAX_CONNS", 25),
		MaxIdleConns:    getEnvInt("ILC_POSTGRES_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("ILC_POSTGRES_CONN_LIFETIME", 30*time.Minute),
	}
}

// loadAuthConfig loads identity-provider configuration from environment
func loadAuthConfig() AuthConfig {
	scopes := strings.Split(getEnv("ILC_OIDC_SCOPES", "openid,profile,email"), ",")
	for i := range scopes {
		scopes[i] = strings.TrimSpace(scopes[i])
	}
	return AuthConfig{
		ProviderName: getEnv("ILC_OIDC_PROVIDER_NAME", "oidc"),
		IssuerURL:    getEnv("ILC_OIDC_ISSUER_URL", ""),
		ClientID:     getEnv("ILC_OIDC_CLIENT_ID", ""),
		ClientSecret: getEnv("ILC_OIDC_CLIENT_SECRET", ""),
		RedirectURL:  getEnv("ILC_OIDC_REDIRECT_URL", ""),
		Scopes:       scopes,
		StateTTL:     getEnvDuration("ILC_OIDC_STATE_TTL", 10*time.Minute),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("postgres URL is required")
	}

	if c.Auth.IssuerURL == "" {
		return fmt.Errorf("OIDC issuer URL is required")
	}
	if c.Auth.ClientID == "" {
		return fmt.Errorf("OIDC client ID is required")
	}
	if c.Auth.ClientSecret == "" {
		return fmt.Errorf("OIDC client secret is required")
	}
	if c.Auth.RedirectURL == "" {
		return fmt.Errorf("OIDC redirect URL is required")
	}

	hasOpenID := false
	for _, scope := range c.Auth.Scopes {
		if scope == "openid" {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return fmt.Errorf("'openid' scope is required")
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
