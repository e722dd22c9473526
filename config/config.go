package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Keycloak      KeycloakConfig
	Broker        BrokerConfig
	DataProducts  DataProductsConfig
	Session       SessionConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	StaticDir       string
}

// KeycloakConfig holds the identity provider endpoints and client credentials
type KeycloakConfig struct {
	AuthURL      string // Authorization endpoint (browser redirect target)
	TokenURL     string // Token endpoint (all grant types)
	UserinfoURL  string
	LogoutURL    string
	ClientID     string
	ClientSecret string // Optional; only sent when set
}

// BrokerConfig holds the NGSI-LD context broker proxy configuration
type BrokerConfig struct {
	URL     string
	Timeout time.Duration
	// AuthRequired disables the access-token gate and the tenant header
	// filter when false, turning the broker route into a plain
	// pass-through proxy.
	AuthRequired bool
}

// DataProductsConfig holds the Data Products API proxy configuration
type DataProductsConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig holds session and cookie behavior configuration.
// DatabaseURL selects the PostgreSQL session store; when empty the
// in-memory store is used.
type SessionConfig struct {
	SecureCookies bool
	DatabaseURL   string
}

// CORSConfig holds the allowed origins for the CORS layer
type CORSConfig struct {
	Origins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
	Debug     bool   // Forces debug level regardless of LogLevel
}

// New creates a new Config instance by loading environment variables
func New() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("HOST", "0.0.0.0"),
			Port:            getEnvAsInt("PORT", 5000),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			StaticDir:       getEnv("STATIC_DIR", "static"),
		},
		Keycloak: KeycloakConfig{
			AuthURL:      getEnv("KEYCLOAK_AUTH_URL", "https://keycloak.sensorsreport.net/realms/sr/protocol/openid-connect/auth"),
			TokenURL:     getEnv("KEYCLOAK_TOKEN_URL", "https://keycloak.sensorsreport.net/realms/sr/protocol/openid-connect/token"),
			UserinfoURL:  getEnv("KEYCLOAK_USERINFO_URL", "https://keycloak.sensorsreport.net/realms/sr/protocol/openid-connect/userinfo"),
			LogoutURL:    getEnv("KEYCLOAK_LOGOUT_URL", "https://keycloak.sensorsreport.net/realms/sr/protocol/openid-connect/logout"),
			ClientID:     getEnv("KEYCLOAK_CLIENT_ID", "ContextBroker"),
			ClientSecret: getEnv("KEYCLOAK_CLIENT_SECRET", ""),
		},
		Broker: BrokerConfig{
			URL:          getEnv("CONTEXT_BROKER_URL", "http://orion.sensorsreport.net:31026"),
			Timeout:      getEnvAsDuration("BROKER_TIMEOUT", 30*time.Second),
			AuthRequired: getEnvAsBool("AUTH_REQUIRED", true),
		},
		DataProducts: DataProductsConfig{
			URL:     getEnv("DATA_PRODUCTS_API_URL", "http://localhost:8000"),
			Timeout: getEnvAsDuration("DATA_PRODUCTS_TIMEOUT", 30*time.Second),
		},
		Session: SessionConfig{
			SecureCookies: getEnvAsBool("SECURE_COOKIES", false),
			DatabaseURL:   getEnv("DATABASE_URL", ""),
		},
		CORS: CORSConfig{
			Origins: splitOrigins(getEnv("CORS_ORIGINS", "*")),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
			Debug:     getEnvAsBool("DEBUG", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Keycloak.AuthURL == "" {
		return fmt.Errorf("keycloak auth URL is required")
	}
	if c.Keycloak.TokenURL == "" {
		return fmt.Errorf("keycloak token URL is required")
	}
	if c.Keycloak.LogoutURL == "" {
		return fmt.Errorf("keycloak logout URL is required")
	}
	if c.Keycloak.ClientID == "" {
		return fmt.Errorf("keycloak client ID is required")
	}
	if c.Broker.URL == "" {
		return fmt.Errorf("context broker URL is required")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// splitOrigins parses the CORS_ORIGINS value; "*" means any origin
func splitOrigins(value string) []string {
	if value == "*" {
		return []string{"*"}
	}
	parts := strings.Split(value, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool accepts the truthy spellings the deployment scripts use
// (true/t/1/yes) in addition to the strict forms.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	switch strings.ToLower(valueStr) {
	case "true", "t", "1", "yes":
		return true
	case "false", "f", "0", "no":
		return false
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
