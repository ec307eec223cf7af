package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/pastagem/pastagem-api/cognito"
	"github.com/pastagem/pastagem-api/internal/observability"
	"github.com/pastagem/pastagem-api/utils"
	"go.uber.org/zap"
)

// TokenVerifier defines the interface for verifying bearer tokens
type TokenVerifier interface {
	// Verify verifies a raw token and returns its principal
	Verify(ctx context.Context, token string) (*cognito.Principal, error)
}

// Outcome is the decision the gate reached for one request
type Outcome int

const (
	Accepted Outcome = iota
	Bypassed
	RejectedHeader
	RejectedToken
)

// String returns the outcome label used in logs and metrics
func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Bypassed:
		return "bypassed"
	case RejectedHeader:
		return "rejected_header"
	case RejectedToken:
		return "rejected_token"
	default:
		return "unknown"
	}
}

// StatusCode returns the HTTP status for a rejection, or 200 when the request proceeds
func (o Outcome) StatusCode() int {
	switch o {
	case RejectedHeader:
		return http.StatusUnauthorized
	case RejectedToken:
		return http.StatusForbidden
	default:
		return http.StatusOK
	}
}

const bearerPrefix = "Bearer "

// Gate authenticates inbound requests with bearer tokens.
// Middleware and RequireAuth are two hook points over the same decision.
type Gate struct {
	verifier TokenVerifier
	rules    atomic.Pointer[Rules]
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewGate creates a new Gate
func NewGate(verifier TokenVerifier, rules Rules, metrics *observability.Metrics, logger *zap.Logger) *Gate {
	g := &Gate{
		verifier: verifier,
		metrics:  metrics,
		logger:   logger,
	}
	g.SetRules(rules)
	return g
}

// SetRules replaces the bypass rules; safe to call while serving
func (g *Gate) SetRules(rules Rules) {
	copied := make(Rules, len(rules))
	copy(copied, rules)
	g.rules.Store(&copied)
}

// Rules returns a copy of the bypass rules in effect
func (g *Gate) Rules() Rules {
	current := *g.rules.Load()
	copied := make(Rules, len(current))
	copy(copied, current)
	return copied
}

// Authenticate runs the request through bypass rules, header checks and token verification
func (g *Gate) Authenticate(r *http.Request) (*cognito.Principal, Outcome) {
	ctx := r.Context()
	requestID := GetRequestIDFromContext(ctx)

	if g.rules.Load().Bypass(r.URL.Path) {
		return nil, Bypassed
	}

	token, ok := extractBearerToken(r)
	if !ok {
		g.logger.Warn("missing or malformed authorization header",
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path))
		return nil, RejectedHeader
	}

	principal, err := g.verifier.Verify(ctx, token)
	if err != nil {
		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("path", r.URL.Path),
			zap.String("kind", failureKind(err)),
			zap.String("token_fingerprint", fingerprint(token)),
			zap.Error(err),
		}
		if cause := cognito.ResolutionCauseOf(err); cause != "" {
			fields = append(fields, zap.String("cause", string(cause)))
		}
		g.logger.Warn("token verification failed", fields...)
		return nil, RejectedToken
	}

	g.logger.Debug("authentication successful",
		zap.String("request_id", requestID),
		zap.String("sub", principal.Subject),
		zap.String("kid", principal.KeyID))
	return principal, Accepted
}

// Middleware is the global hook: every request passes the gate, bypass rules included
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g.serve(w, r, next)
	})
}

// RequireAuth is the route-group hook. A principal attached by an outer hook is trusted as is.
func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetPrincipalFromContext(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}
		g.serve(w, r, next)
	})
}

func (g *Gate) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	principal, outcome := g.Authenticate(r)
	g.metrics.RecordGateDecision(outcome.String())

	switch outcome {
	case RejectedHeader:
		_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
		return
	case RejectedToken:
		_ = utils.WriteForbidden(w, "Invalid token")
		return
	case Accepted:
		r = r.WithContext(WithPrincipal(r.Context(), principal))
	}

	next.ServeHTTP(w, r)
}

// extractBearerToken extracts the token from an "Authorization: Bearer <token>" header
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(authHeader[len(bearerPrefix):])
	return token, token != ""
}

// failureKind names a verification failure for logs
func failureKind(err error) string {
	switch {
	case errors.Is(err, cognito.ErrTokenMalformed):
		return "token_malformed"
	case errors.Is(err, cognito.ErrKeyResolution):
		return "key_resolution"
	case errors.Is(err, cognito.ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, cognito.ErrClaimsInvalid):
		return "claims_invalid"
	default:
		return "unknown"
	}
}

// fingerprint identifies a token in logs without revealing it
func fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])[:12]
}
