package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pastagem/pastagem-api/cognito"
	"github.com/pastagem/pastagem-api/config"
	"github.com/pastagem/pastagem-api/utils"
	"go.uber.org/zap"
)

const (
	// StateCookieName is the cookie name for OAuth state (CSRF)
	StateCookieName   = "oauth_state"
	stateCookieMaxAge = 600
)

// TokenExchanger exchanges OAuth2 authorization codes for tokens via the OAuth2 token endpoint.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenResponse, error)
}

// TokenVerifier verifies a token and returns its principal.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*cognito.Principal, error)
}

// Handler handles the hosted UI flows (login, callback, logout).
// The callback hands the verified ID token to the front end, which then
// sends it as a bearer token on API calls.
type Handler struct {
	cfg       config.CognitoConfig
	exchanger TokenExchanger
	verifier  TokenVerifier
	logger    *zap.Logger
}

// NewHandler creates a new auth handler with the given config, token exchanger, and verifier.
func NewHandler(cfg config.CognitoConfig, exchanger TokenExchanger, verifier TokenVerifier, logger *zap.Logger) *Handler {
	return &Handler{
		cfg:       cfg,
		exchanger: exchanger,
		verifier:  verifier,
		logger:    logger,
	}
}

// Configured reports whether the hosted UI is set up
func (h *Handler) Configured() bool {
	return h.cfg.Domain != "" && h.cfg.ClientID != ""
}

// HandleLogin redirects to Cognito hosted UI for OAuth2 authorization
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.Configured() {
		h.logger.Error("cognito hosted UI not configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	state, err := generateSecureState()
	if err != nil {
		h.logger.Error("failed to generate state", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to initiate login")
		return
	}

	http.SetCookie(w, h.stateCookie(state, stateCookieMaxAge))

	authURL := buildAuthURL(h.cfg.Domain, h.cfg.ClientID, h.cfg.RedirectURI, state)
	http.Redirect(w, r, authURL, http.StatusFound)
}

// HandleCallback exchanges the authorization code for tokens, verifies the ID token,
// and redirects to the front end with the token in the URL fragment
func (h *Handler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")

	if code == "" {
		_ = utils.WriteBadRequest(w, "Missing authorization code", nil)
		return
	}
	if state == "" {
		_ = utils.WriteBadRequest(w, "Missing state parameter", nil)
		return
	}

	stateCookie, err := r.Cookie(StateCookieName)
	if err != nil || stateCookie.Value != state {
		_ = utils.WriteBadRequest(w, "Invalid or expired state", nil)
		return
	}
	http.SetCookie(w, h.stateCookie("", -1))

	if h.exchanger == nil || h.verifier == nil {
		h.logger.Error("auth handler not fully configured")
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}

	tokens, err := h.exchanger.ExchangeCode(r.Context(), code, h.cfg.RedirectURI)
	if err != nil {
		h.logger.Warn("token exchange failed", zap.Error(err))
		_ = utils.WriteUnauthorized(w, "Authentication failed")
		return
	}

	principal, err := h.verifier.Verify(r.Context(), tokens.IDToken)
	if err != nil {
		h.logger.Warn("id token verification failed", zap.Error(err))
		_ = utils.WriteForbidden(w, "Invalid token")
		return
	}

	h.logger.Info("login completed", zap.String("sub", principal.Subject))
	http.Redirect(w, r, buildFrontEndURL(h.cfg.FrontEndURL, tokens), http.StatusFound)
}

// HandleLogout redirects to Cognito logout
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !h.Configured() {
		_ = utils.WriteInternalServerError(w, "Authentication not configured")
		return
	}
	target := h.cfg.FrontEndURL
	if target == "" {
		target = h.cfg.RedirectURI
	}
	logoutURL := buildLogoutURL(h.cfg.Domain, h.cfg.ClientID, target)
	http.Redirect(w, r, logoutURL, http.StatusFound)
}

func (h *Handler) stateCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     StateCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   strings.HasPrefix(h.cfg.RedirectURI, "https"),
		SameSite: http.SameSiteLaxMode,
	}
}

func buildAuthURL(domain, clientID, redirectURI, state string) string {
	base := strings.TrimSuffix(domain, "/") + "/oauth2/authorize"
	params := url.Values{
		"response_type": {"code"},
		"client_id":     {clientID},
		"redirect_uri":  {redirectURI},
		"state":         {state},
		"scope":         {"openid email profile"},
	}
	return base + "?" + params.Encode()
}

func buildLogoutURL(domain, clientID, logoutURI string) string {
	if parsed, err := url.Parse(logoutURI); err == nil && parsed.Host != "" {
		logoutURI = parsed.Scheme + "://" + parsed.Host
	}
	base := strings.TrimSuffix(domain, "/") + "/logout"
	params := url.Values{
		"client_id":  {clientID},
		"logout_uri": {logoutURI},
	}
	return base + "?" + params.Encode()
}

// buildFrontEndURL appends the tokens as a fragment so they never reach server logs
func buildFrontEndURL(frontEnd string, tokens *TokenResponse) string {
	if frontEnd == "" {
		frontEnd = "/"
	}
	fragment := url.Values{"id_token": {tokens.IDToken}}
	if tokens.AccessToken != "" {
		fragment.Set("access_token", tokens.AccessToken)
	}
	if tokens.ExpiresIn > 0 {
		fragment.Set("expires_in", strconv.Itoa(tokens.ExpiresIn))
	}
	return strings.SplitN(frontEnd, "#", 2)[0] + "#" + fragment.Encode()
}

func generateSecureState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
