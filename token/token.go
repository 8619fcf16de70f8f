// Package token verifies the access tokens the identity provider mints for
// sessions.
//
// The provider signs session tokens with a shared HMAC secret (HS256),
// carrying the user id in the subject claim. Verification happens locally,
// without calling the provider.
package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the session-relevant claims extracted from a verified token.
type Claims struct {
	Subject   string
	Email     string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Issuer    string
}

// Verifier validates provider-issued session tokens.
type Verifier struct {
	secret []byte
	issuer string
}

// Option configures the Verifier.
type Option func(*Verifier)

// WithIssuer requires tokens to carry the given issuer claim.
func WithIssuer(issuer string) Option {
	return func(v *Verifier) { v.issuer = issuer }
}

// NewVerifier creates a verifier for tokens signed with the given shared
// secret.
func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{secret: []byte(secret)}
	for _, o := range opts {
		o(v)
	}
	return v
}

// Verify validates a session token string and returns the extracted claims.
func (v *Verifier) Verify(tokenString string) (*Claims, error) {
	parserOpts := []jwt.ParserOption{jwt.WithExpirationRequired()}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	parser := jwt.NewParser(parserOpts...)

	tok, err := parser.Parse(tokenString, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("shelfmate/token: %w", err)
	}

	mapClaims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, fmt.Errorf("shelfmate/token: invalid token claims")
	}

	return mapToClaims(mapClaims), nil
}

func mapToClaims(m jwt.MapClaims) *Claims {
	c := &Claims{}
	if sub, err := m.GetSubject(); err == nil {
		c.Subject = sub
	}
	if iss, err := m.GetIssuer(); err == nil {
		c.Issuer = iss
	}
	if exp, err := m.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	if iat, err := m.GetIssuedAt(); err == nil && iat != nil {
		c.IssuedAt = iat.Time
	}
	if email, ok := m["email"].(string); ok {
		c.Email = email
	}
	return c
}

// Sign mints a session token for tests and the demo app's embedded
// provider.
func Sign(secret, subject, email, issuer string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("shelfmate/token: sign: %w", err)
	}
	return signed, nil
}
