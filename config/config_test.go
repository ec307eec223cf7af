package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pastagem/pastagem-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT":          "development",
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, "https://cognito-idp.us-east-1.amazonaws.com", cfg.Cognito.URL)
				assert.Equal(t, 5*time.Second, cfg.Cognito.JWKSTimeout)
				assert.False(t, cfg.Cognito.ValidateClaims)
				assert.Nil(t, cfg.Auth.BypassRules)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
				assert.True(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "region drives the default issuer URL",
			envVars: map[string]string{
				"COGNITO_REGION":       "sa-east-1",
				"COGNITO_USER_POOL_ID": "sa-east-1_xyz",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://cognito-idp.sa-east-1.amazonaws.com", cfg.Cognito.URL)
				assert.Equal(t, "https://cognito-idp.sa-east-1.amazonaws.com/sa-east-1_xyz", cfg.Cognito.Issuer())
			},
		},
		{
			name: "production configuration",
			envVars: map[string]string{
				"ENVIRONMENT":             "production",
				"SERVER_PORT":             "9000",
				"COGNITO_URL":             "https://issuer.example.com/",
				"COGNITO_USER_POOL_ID":    "us-east-1_xxxxx",
				"COGNITO_CLIENT_ID":       "client123",
				"COGNITO_JWKS_TIMEOUT":    "2s",
				"COGNITO_VALIDATE_CLAIMS": "true",
				"COGNITO_CLAIMS_LEEWAY":   "30s",
				"CORS_ALLOWED_ORIGINS":    "https://a.example.com, https://b.example.com",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, "json", cfg.Observability.LogFormat)
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "https://issuer.example.com", cfg.Cognito.IssuerURL())
				assert.Equal(t, 2*time.Second, cfg.Cognito.JWKSTimeout)
				assert.True(t, cfg.Cognito.ValidateClaims)
				assert.Equal(t, 30*time.Second, cfg.Cognito.ClaimsLeeway)
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORSAllowedOrigins)
			},
		},
		{
			name: "PORT takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":                 "7000",
				"SERVER_PORT":          "9000",
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 7000, cfg.Server.Port)
			},
		},
		{
			name: "bypass patterns from env",
			envVars: map[string]string{
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
				"AUTH_BYPASS_PATTERNS": "!/auth/admin/**, /auth/**,/healthz",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []BypassRule{
					{Pattern: "/auth/admin/**", Bypass: false},
					{Pattern: "/auth/**", Bypass: true},
					{Pattern: "/healthz", Bypass: true},
				}, cfg.Auth.BypassRules)
			},
		},
		{
			name:    "missing user pool",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "production without client ID",
			envVars: map[string]string{
				"ENVIRONMENT":          "production",
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
			},
			wantErr: true,
		},
		{
			name: "relative bypass pattern",
			envVars: map[string]string{
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
				"AUTH_BYPASS_PATTERNS": "auth/**",
			},
			wantErr: true,
		},
		{
			name: "explicit log format wins in development",
			envVars: map[string]string{
				"ENVIRONMENT":          "development",
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
				"LOG_FORMAT":           "json",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "unknown log format",
			envVars: map[string]string{
				"COGNITO_USER_POOL_ID": "us-east-1_abc",
				"LOG_FORMAT":           "xml",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, cfg)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				if tt.check != nil {
					tt.check(t, cfg)
				}
			}
		})
	}
}

func TestNew_RulesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rules.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[rule]]
pattern = "/auth/**"
bypass = true

[[rule]]
pattern = "/api/private/**"
bypass = false
`), 0o600))

	t.Setenv("COGNITO_USER_POOL_ID", "us-east-1_abc")
	t.Setenv("AUTH_RULES_FILE", path)
	t.Setenv("AUTH_BYPASS_PATTERNS", "/ignored")

	cfg, err := New(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []BypassRule{
		{Pattern: "/auth/**", Bypass: true},
		{Pattern: "/api/private/**", Bypass: false},
	}, cfg.Auth.BypassRules)

	t.Setenv("AUTH_RULES_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	_, err = New(context.Background())
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Environment: "development",
			Server: ServerConfig{
				Port:            8080,
				ReadTimeout:     time.Second,
				WriteTimeout:    time.Second,
				ShutdownTimeout: time.Second,
			},
			Cognito: CognitoConfig{
				URL:         "https://cognito-idp.us-east-1.amazonaws.com",
				Region:      "us-east-1",
				UserPoolID:  "us-east-1_abc",
				JWKSTimeout: 5 * time.Second,
			},
			Observability: ObservabilityConfig{LogLevel: "info", LogFormat: "json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing pool", mutate: func(c *Config) { c.Cognito.UserPoolID = "" }, wantErr: "UserPoolID is required"},
		{name: "bad issuer URL", mutate: func(c *Config) { c.Cognito.URL = "issuer" }, wantErr: "URL must be a valid URL"},
		{name: "zero JWKS timeout", mutate: func(c *Config) { c.Cognito.JWKSTimeout = 0 }, wantErr: "JWKSTimeout"},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "Port"},
		{name: "bad log level", mutate: func(c *Config) { c.Observability.LogLevel = "trace" }, wantErr: "LogLevel"},
		{
			name:    "relative rule",
			mutate:  func(c *Config) { c.Auth.BypassRules = []BypassRule{{Pattern: "healthz", Bypass: true}} },
			wantErr: "Pattern must start with /",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.True(t, utils.IsValidationError(err))
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"production", true},
		{"prod", true},
		{"development", false},
		{"staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Environment: tt.env}
			assert.Equal(t, tt.expected, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		env      string
		expected bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Environment: tt.env}
			assert.Equal(t, tt.expected, cfg.IsDevelopment())
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := &ServerConfig{Host: "localhost", Port: 8080}
	assert.Equal(t, "localhost:8080", cfg.Address())
}

func TestCognitoConfig_Issuer(t *testing.T) {
	cfg := &CognitoConfig{URL: "https://issuer.example.com/", UserPoolID: "pool"}
	assert.Equal(t, "https://issuer.example.com/pool", cfg.Issuer())

	cfg.ExpectedIssuer = "https://custom.example.com"
	assert.Equal(t, "https://custom.example.com", cfg.Issuer())
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue bool
		expected     bool
	}{
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"invalid", "maybe", true, true},
		{"empty", "", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.value)
			assert.Equal(t, tt.expected, getEnvAsBool("TEST_BOOL", tt.defaultValue))
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"seconds", "5s", time.Second, 5 * time.Second},
		{"minutes", "2m", time.Second, 2 * time.Minute},
		{"invalid", "soon", time.Second, time.Second},
		{"empty", "", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.expected, getEnvAsDuration("TEST_DURATION", tt.defaultValue))
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	t.Setenv("TEST_LIST", " a, ,b ,c")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsList("TEST_LIST", nil))

	t.Setenv("TEST_LIST", "")
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))
}

// clearEnv blanks every variable New reads so the host environment cannot leak in
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"ENVIRONMENT", "SERVER_HOST", "PORT", "SERVER_PORT",
		"SERVER_READ_TIMEOUT", "SERVER_WRITE_TIMEOUT", "SERVER_SHUTDOWN_TIMEOUT",
		"COGNITO_URL", "COGNITO_REGION", "COGNITO_USER_POOL_ID", "COGNITO_CLIENT_ID",
		"COGNITO_CLIENT_SECRET", "COGNITO_DOMAIN", "COGNITO_REDIRECT_URI", "FRONT_END_URL",
		"COGNITO_JWKS_TIMEOUT", "COGNITO_VALIDATE_CLAIMS", "COGNITO_EXPECTED_ISSUER",
		"COGNITO_CLAIMS_LEEWAY", "AUTH_BYPASS_PATTERNS", "AUTH_RULES_FILE",
		"LOG_LEVEL", "LOG_FORMAT", "LOG_FILE", "METRICS_ENABLED", "CORS_ALLOWED_ORIGINS",
	} {
		t.Setenv(key, "")
	}
}
