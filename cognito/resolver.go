package cognito

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/pastagem/pastagem-api/internal/observability"
	"go.uber.org/zap"
)

// maxJWKSBytes bounds the JWKS response body
const maxJWKSBytes = 1 << 20

// KeyResolver resolves the RSA public key for a kid
type KeyResolver interface {
	Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// ResolverConfig holds configuration for JWKSResolver
type ResolverConfig struct {
	IssuerURL   string // e.g. https://cognito-idp.sa-east-1.amazonaws.com
	UserPoolID  string
	HTTPTimeout time.Duration
	HTTPClient  *http.Client // optional; HTTPTimeout is ignored when set
}

// JWKSResolver resolves signing keys from the user pool's published key set,
// caching every key it resolves.
type JWKSResolver struct {
	jwksURL    string
	httpClient *http.Client
	cache      *KeyCache
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// JWKSURL returns {issuerURL}/{userPoolID}/.well-known/jwks.json
func JWKSURL(issuerURL, userPoolID string) string {
	return fmt.Sprintf("%s/%s/.well-known/jwks.json", strings.TrimSuffix(issuerURL, "/"), userPoolID)
}

// NewJWKSResolver creates a resolver that stores keys in cache
func NewJWKSResolver(cfg ResolverConfig, cache *KeyCache, metrics *observability.Metrics, logger *zap.Logger) *JWKSResolver {
	if cfg.HTTPTimeout == 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return &JWKSResolver{
		jwksURL:    JWKSURL(cfg.IssuerURL, cfg.UserPoolID),
		httpClient: client,
		cache:      cache,
		metrics:    metrics,
		logger:     logger,
	}
}

// URL returns the key set endpoint this resolver fetches
func (r *JWKSResolver) URL() string {
	return r.jwksURL
}

// Resolve returns the public key for kid, fetching the key set once on a cache miss.
// Failures are returned as *KeyResolutionError.
func (r *JWKSResolver) Resolve(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, ok := r.cache.Get(kid); ok {
		return key, nil
	}

	key, err := r.fetchKey(ctx, kid)
	if err != nil {
		cause := ResolutionCauseOf(err)
		r.metrics.RecordJWKSFetch(string(cause))
		r.logger.Debug("jwks key resolution failed",
			zap.String("kid", kid),
			zap.String("cause", string(cause)))
		return nil, err
	}

	stored := r.cache.Add(kid, key)
	r.metrics.RecordJWKSFetch("ok")
	r.metrics.SetCachedKeys(r.cache.Len())
	r.logger.Debug("jwks key cached", zap.String("kid", kid))
	return stored, nil
}

// fetchKey performs a single GET of the key set and extracts kid
func (r *JWKSResolver) fetchKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.jwksURL, nil)
	if err != nil {
		return nil, newResolutionError(kid, CauseTransport, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, newResolutionError(kid, CauseTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		resErr := newResolutionError(kid, CauseStatus, nil)
		resErr.StatusCode = resp.StatusCode
		return nil, resErr
	}

	var doc struct {
		Keys *[]JWK `json:"keys"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBytes)).Decode(&doc); err != nil {
		return nil, newResolutionError(kid, CauseMalformedJSON, err)
	}
	if doc.Keys == nil {
		return nil, newResolutionError(kid, CauseMissingKeys, errors.New(`no "keys" array in key set`))
	}

	jwk := (&JWKS{Keys: *doc.Keys}).Find(kid)
	if jwk == nil {
		return nil, newResolutionError(kid, CauseKeyNotFound, nil)
	}

	key, err := jwk.RSAPublicKey()
	if err != nil {
		return nil, newResolutionError(kid, CauseInvalidKey, err)
	}
	return key, nil
}

// Find returns the key with the given kid, or nil
func (s *JWKS) Find(kid string) *JWK {
	for i := range s.Keys {
		if s.Keys[i].Kid == kid {
			return &s.Keys[i]
		}
	}
	return nil
}

// RSAPublicKey builds an RSA public key from the base64url modulus and exponent
func (k *JWK) RSAPublicKey() (*rsa.PublicKey, error) {
	nBytes, err := decodeBase64URL(k.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}
	eBytes, err := decodeBase64URL(k.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	if n.Sign() == 0 {
		return nil, errors.New("empty modulus")
	}
	e := new(big.Int).SetBytes(eBytes)
	if !e.IsInt64() || e.Int64() < 2 || e.Int64() > 1<<31-1 {
		return nil, fmt.Errorf("unsupported exponent %s", e.String())
	}

	return &rsa.PublicKey{N: n, E: int(e.Int64())}, nil
}

// decodeBase64URL accepts both padded and unpadded base64url
func decodeBase64URL(s string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
}
