package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pastagem/pastagem-api/utils"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Cognito       CognitoConfig
	Auth          AuthConfig
	Observability ObservabilityConfig
	Environment   string `validate:"required"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host               string
	Port               int           `validate:"gt=0,lte=65535"`
	ReadTimeout        time.Duration `validate:"gt=0"`
	WriteTimeout       time.Duration `validate:"gt=0"`
	ShutdownTimeout    time.Duration `validate:"gt=0"`
	CORSAllowedOrigins []string
}

// CognitoConfig holds AWS Cognito authentication configuration
type CognitoConfig struct {
	URL          string `validate:"required,url"` // Issuer base URL (loaded from COGNITO_URL)
	Region       string `validate:"required"`
	UserPoolID   string `validate:"required"`
	ClientID     string
	ClientSecret string
	Domain       string // Cognito domain (e.g., https://my-app.auth.us-east-1.amazoncognito.com)
	RedirectURI  string // OAuth2 callback URL
	FrontEndURL  string // Post-login redirect target (loaded from FRONT_END_URL)

	JWKSTimeout    time.Duration `validate:"gt=0"`
	ValidateClaims bool
	ExpectedIssuer string
	ClaimsLeeway   time.Duration `validate:"gte=0"`
}

// AuthConfig holds request gate configuration
type AuthConfig struct {
	// BypassRules is nil when neither AUTH_RULES_FILE nor AUTH_BYPASS_PATTERNS is set
	BypassRules []BypassRule `validate:"dive"`
	RulesFile   string
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string `validate:"oneof=debug info warn error"`
	LogFormat      string `validate:"oneof=json console"`
	LogFile        string
	MetricsEnabled bool
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	region := getEnv("COGNITO_REGION", "us-east-1")
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:               getEnv("SERVER_HOST", "0.0.0.0"),
			Port:               getPort(),
			ReadTimeout:        getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:       getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout:    getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Cognito: CognitoConfig{
			URL:            getEnv("COGNITO_URL", fmt.Sprintf("https://cognito-idp.%s.amazonaws.com", region)),
			Region:         region,
			UserPoolID:     getEnv("COGNITO_USER_POOL_ID", ""),
			ClientID:       getEnv("COGNITO_CLIENT_ID", ""),
			ClientSecret:   getEnv("COGNITO_CLIENT_SECRET", ""),
			Domain:         getEnv("COGNITO_DOMAIN", ""),
			RedirectURI:    getEnv("COGNITO_REDIRECT_URI", "http://localhost:8080/auth/callback"),
			FrontEndURL:    getEnv("FRONT_END_URL", "http://localhost:5173"),
			JWKSTimeout:    getEnvAsDuration("COGNITO_JWKS_TIMEOUT", 5*time.Second),
			ValidateClaims: getEnvAsBool("COGNITO_VALIDATE_CLAIMS", false),
			ExpectedIssuer: getEnv("COGNITO_EXPECTED_ISSUER", ""),
			ClaimsLeeway:   getEnvAsDuration("COGNITO_CLAIMS_LEEWAY", 0),
		},
		Auth: AuthConfig{
			RulesFile: getEnv("AUTH_RULES_FILE", ""),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			LogFile:        getEnv("LOG_FILE", ""),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}

	// Human-readable logs by default when developing locally
	if cfg.IsDevelopment() && os.Getenv("LOG_FORMAT") == "" {
		cfg.Observability.LogFormat = "console"
	}

	if cfg.Auth.RulesFile != "" {
		rules, err := LoadRulesFile(cfg.Auth.RulesFile)
		if err != nil {
			return nil, fmt.Errorf("load auth rules: %w", err)
		}
		cfg.Auth.BypassRules = rules
	} else if patterns := os.Getenv("AUTH_BYPASS_PATTERNS"); patterns != "" {
		cfg.Auth.BypassRules = ParseBypassPatterns(patterns)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		if !utils.IsValidationError(err) {
			return err
		}
		return fmt.Errorf("%w: %s", err, joinFields(utils.GetValidationFields(err)))
	}

	if c.IsProduction() && c.Cognito.ClientID == "" {
		return fmt.Errorf("cognito client ID is required in production")
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

// IssuerURL returns the issuer base URL without a trailing slash
func (c *CognitoConfig) IssuerURL() string {
	return strings.TrimRight(c.URL, "/")
}

// Issuer returns the expected iss claim: COGNITO_EXPECTED_ISSUER, or {issuer base}/{pool}
func (c *CognitoConfig) Issuer() string {
	if c.ExpectedIssuer != "" {
		return c.ExpectedIssuer
	}
	return c.IssuerURL() + "/" + c.UserPoolID
}

func joinFields(fields map[string]string) string {
	msgs := make([]string, 0, len(fields))
	for _, msg := range fields {
		msgs = append(msgs, msg)
	}
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
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

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
