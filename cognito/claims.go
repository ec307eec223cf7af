package cognito

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// RoleUser is the single role granted to every verified principal
const RoleUser = "ROLE_USER"

// DecodedToken is a token split into its parts, not yet verified
type DecodedToken struct {
	KeyID     string
	Subject   string
	Header    map[string]interface{}
	Claims    jwt.MapClaims
	Signature []byte
}

// Principal is the authenticated identity of a verified token
type Principal struct {
	Subject string
	Roles   []string
	KeyID   string
	Claims  map[string]interface{}
}

// HasRole checks if the principal has a specific role
func (p *Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Email returns the email claim, if any
func (p *Principal) Email() string {
	email, _ := p.Claims["email"].(string)
	return email
}

// Username returns cognito:username, falling back to username (access tokens)
func (p *Principal) Username() string {
	if name, ok := p.Claims["cognito:username"].(string); ok {
		return name
	}
	name, _ := p.Claims["username"].(string)
	return name
}

// Decode splits and decodes a token without verifying its signature.
// Any structural problem, including a missing kid header, matches ErrTokenMalformed.
func Decode(tokenString string) (*DecodedToken, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := jwt.MapClaims{}
	token, parts, err := parser.ParseUnverified(tokenString, claims)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	signature, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: could not decode signature: %v", ErrTokenMalformed, err)
	}

	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return nil, fmt.Errorf("%w: kid header not found", ErrTokenMalformed)
	}

	sub, _ := claims["sub"].(string)

	return &DecodedToken{
		KeyID:     kid,
		Subject:   sub,
		Header:    token.Header,
		Claims:    claims,
		Signature: signature,
	}, nil
}

// principalFromClaims builds the principal of a verified token
func principalFromClaims(kid string, claims jwt.MapClaims) *Principal {
	sub, _ := claims["sub"].(string)
	copied := make(map[string]interface{}, len(claims))
	for k, v := range claims {
		copied[k] = v
	}
	return &Principal{
		Subject: sub,
		Roles:   []string{RoleUser},
		KeyID:   kid,
		Claims:  copied,
	}
}
