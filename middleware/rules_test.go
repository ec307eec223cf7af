package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern  string
		path     string
		expected bool
	}{
		{"/auth/**", "/auth", true},
		{"/auth/**", "/auth/login", true},
		{"/auth/**", "/auth/callback/extra", true},
		{"/auth/**", "/authx", false},
		{"/auth/**", "/api/auth/login", false},
		{"/api/usuarios/register", "/api/usuarios/register", true},
		{"/api/usuarios/register", "/api/usuarios/register/", true},
		{"/api/usuarios/register", "/api/usuarios", false},
		{"/api/*/public", "/api/propriedades/public", true},
		{"/api/*/public", "/api/propriedades/x/public", false},
		{"/api/**/public", "/api/propriedades/x/public", true},
		{"/api/**/public", "/api/public", true},
		{"/files/?.txt", "/files/a.txt", true},
		{"/files/?.txt", "/files/ab.txt", false},
		{"/**", "/anything/at/all", true},
		{"/**", "/", true},
		{"/healthz", "/readyz", false},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+" "+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, MatchPattern(tt.pattern, tt.path))
		})
	}
}

func TestRulesBypass(t *testing.T) {
	t.Run("default rules", func(t *testing.T) {
		rules := DefaultRules()
		assert.True(t, rules.Bypass("/auth/login"))
		assert.True(t, rules.Bypass("/oauth2/idpresponse"))
		assert.False(t, rules.Bypass("/oauth2/token"))
		assert.True(t, rules.Bypass("/api/usuarios/register"))
		assert.True(t, rules.Bypass("/healthz"))
		assert.True(t, rules.Bypass("/metrics"))
		assert.False(t, rules.Bypass("/api/usuarios"))
		assert.False(t, rules.Bypass("/api/me"))
		assert.False(t, rules.Bypass("/"))
	})

	t.Run("first matching rule wins", func(t *testing.T) {
		rules := Rules{
			{Pattern: "/public/admin/**", Bypass: false},
			{Pattern: "/public/**", Bypass: true},
		}
		assert.False(t, rules.Bypass("/public/admin/users"))
		assert.True(t, rules.Bypass("/public/pastagens"))
	})

	t.Run("no rules protects everything", func(t *testing.T) {
		var rules Rules
		assert.False(t, rules.Bypass("/healthz"))
	})
}

func TestRulesValidate(t *testing.T) {
	assert.NoError(t, DefaultRules().Validate())
	assert.NoError(t, Rules{{Pattern: "/api/**/x?y/*", Bypass: true}}.Validate())

	err := Rules{{Pattern: "api/x", Bypass: true}}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "must start with /")

	err = Rules{{Pattern: "/healthz"}, {Pattern: "/api/[", Bypass: true}}.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "rule 1")
}
