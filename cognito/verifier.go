package cognito

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ClaimsPolicy selects the standard claim checks applied after the signature.
// The zero value checks nothing but the signature.
type ClaimsPolicy struct {
	Enabled  bool          // validate exp (required) and nbf
	Issuer   string        // expected iss, if set
	Audience string        // expected aud, or client_id for access tokens, if set
	Leeway   time.Duration // clock skew allowed for exp/nbf
}

// Verifier verifies RS256 tokens against keys from a KeyResolver
type Verifier struct {
	resolver KeyResolver
	policy   ClaimsPolicy
	parser   *jwt.Parser
	logger   *zap.Logger
}

// NewVerifier creates a new token verifier
func NewVerifier(resolver KeyResolver, policy ClaimsPolicy, logger *zap.Logger) *Verifier {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()})}
	if policy.Enabled {
		opts = append(opts, jwt.WithExpirationRequired(), jwt.WithLeeway(policy.Leeway))
		if policy.Issuer != "" {
			opts = append(opts, jwt.WithIssuer(policy.Issuer))
		}
	} else {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	return &Verifier{
		resolver: resolver,
		policy:   policy,
		parser:   jwt.NewParser(opts...),
		logger:   logger,
	}
}

// Verify decodes the token, resolves its signing key and verifies the signature.
// Errors match ErrTokenMalformed, ErrKeyResolution, ErrSignatureInvalid or ErrClaimsInvalid.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*Principal, error) {
	decoded, err := Decode(tokenString)
	if err != nil {
		return nil, err
	}

	publicKey, err := v.resolver.Resolve(ctx, decoded.KeyID)
	if err != nil {
		return nil, err
	}

	claims := jwt.MapClaims{}
	_, err = v.parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
		return publicKey, nil
	})
	if err != nil {
		return nil, classifyParseError(err)
	}

	if v.policy.Enabled && v.policy.Audience != "" && !hasAudience(claims, v.policy.Audience) {
		return nil, fmt.Errorf("%w: audience does not include %s", ErrClaimsInvalid, v.policy.Audience)
	}

	principal := principalFromClaims(decoded.KeyID, claims)
	v.logger.Debug("token verified",
		zap.String("kid", decoded.KeyID),
		zap.String("sub", principal.Subject))
	return principal, nil
}

// classifyParseError maps golang-jwt errors onto this package's sentinels
func classifyParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenInvalidClaims):
		return fmt.Errorf("%w: %v", ErrClaimsInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
}

// hasAudience checks aud (ID tokens) and client_id (access tokens)
func hasAudience(claims jwt.MapClaims, expected string) bool {
	if aud, err := claims.GetAudience(); err == nil {
		for _, a := range aud {
			if a == expected {
				return true
			}
		}
	}
	clientID, _ := claims["client_id"].(string)
	return clientID == expected
}
