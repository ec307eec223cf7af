package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pastagem/pastagem-api/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExchangeCode(t *testing.T) {
	t.Run("posts the code and returns tokens", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/oauth2/token", r.URL.Path)
			assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "client-1", r.PostForm.Get("client_id"))
			assert.Equal(t, "code-1", r.PostForm.Get("code"))
			assert.Equal(t, "http://localhost:8080/auth/callback", r.PostForm.Get("redirect_uri"))

			user, pass, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "client-1", user)
			assert.Equal(t, "s3cret", pass)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"id_token":"id.tok.en","access_token":"acc","expires_in":3600,"token_type":"Bearer"}`))
		}))
		defer server.Close()

		exchanger := NewCognitoTokenExchanger(config.CognitoConfig{
			Domain:       server.URL + "/",
			ClientID:     "client-1",
			ClientSecret: "s3cret",
		}, time.Second)

		tokens, err := exchanger.ExchangeCode(context.Background(), "code-1", "http://localhost:8080/auth/callback")
		require.NoError(t, err)
		assert.Equal(t, "id.tok.en", tokens.IDToken)
		assert.Equal(t, "acc", tokens.AccessToken)
		assert.Equal(t, 3600, tokens.ExpiresIn)
	})

	t.Run("public client sends no basic auth", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _, ok := r.BasicAuth()
			assert.False(t, ok)
			_, _ = w.Write([]byte(`{"id_token":"id.tok.en"}`))
		}))
		defer server.Close()

		exchanger := NewCognitoTokenExchanger(config.CognitoConfig{Domain: server.URL, ClientID: "client-1"}, time.Second)
		_, err := exchanger.ExchangeCode(context.Background(), "code-1", "http://localhost/cb")
		assert.NoError(t, err)
	})

	failures := []struct {
		name   string
		status int
		body   string
	}{
		{"error status", http.StatusBadRequest, `{"error":"invalid_grant"}`},
		{"invalid json", http.StatusOK, `{`},
		{"missing id token", http.StatusOK, `{"access_token":"acc"}`},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			exchanger := NewCognitoTokenExchanger(config.CognitoConfig{Domain: server.URL, ClientID: "client-1"}, time.Second)
			tokens, err := exchanger.ExchangeCode(context.Background(), "code-1", "http://localhost/cb")
			assert.Error(t, err)
			assert.Nil(t, tokens)
		})
	}

	t.Run("not configured", func(t *testing.T) {
		exchanger := NewCognitoTokenExchanger(config.CognitoConfig{}, 0)
		_, err := exchanger.ExchangeCode(context.Background(), "code-1", "http://localhost/cb")
		assert.True(t, errors.Is(err, ErrNotConfigured))
	})
}

func TestBuildFrontEndURL(t *testing.T) {
	assert.Equal(t, "/#id_token=a.b.c", buildFrontEndURL("", &TokenResponse{IDToken: "a.b.c"}))
	assert.Equal(t, "http://localhost:5173/#id_token=a.b.c",
		buildFrontEndURL("http://localhost:5173/#old", &TokenResponse{IDToken: "a.b.c"}))
}
