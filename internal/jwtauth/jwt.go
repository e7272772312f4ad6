package jwtauth

import (
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/szhangbiao/mailsend/internal/core"
)

// AssertionLifetime is the fixed validity window of a signed assertion.
const AssertionLifetime = time.Hour

// nowFunc is swapped out in tests to pin claim timestamps.
var nowFunc = time.Now

// Claims describes the assertion payload of the JWT-bearer flow.
type Claims struct {
	// Issuer is the service-account identity (client email).
	Issuer string

	// Scope is the space-delimited permission string.
	Scope string

	// Audience is the token endpoint URL the assertion will be exchanged at.
	Audience string

	// Subject is an optional impersonated identity for domain-wide
	// delegation. Empty for direct service-account flows.
	Subject string
}

// Generate builds and signs a compact RS256 JWT for the given claims.
// The issued-at timestamp is taken at call time and expiry is always
// AssertionLifetime later. A failure never yields a partial token.
func Generate(claims Claims, key *rsa.PrivateKey) (string, error) {
	if key == nil {
		return "", &core.SigningError{Message: "signing key is nil"}
	}

	now := nowFunc()
	payload := jwt.MapClaims{
		"iss":   claims.Issuer,
		"scope": claims.Scope,
		"aud":   claims.Audience,
		"iat":   now.Unix(),
		"exp":   now.Add(AssertionLifetime).Unix(),
	}
	if claims.Subject != "" {
		payload["sub"] = claims.Subject
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, payload)
	signed, err := token.SignedString(key)
	if err != nil {
		return "", &core.SigningError{Message: "failed to sign assertion", Cause: err}
	}
	return signed, nil
}
