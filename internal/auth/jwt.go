// Package auth verifies the session tokens issued by the hosted identity
// provider and exposes the authenticated user to handlers.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. The user signs in on the provider's hosted pages.
//  2. The provider sets a "__session" cookie holding a short-lived JWT.
//  3. On every API call, middleware reads the cookie (or a Bearer header),
//     verifies the JWT and stores the session in the request context.
//
// The provider signs with RS256 (RSA + SHA-256). We only ever hold the
// PUBLIC key, so this service can verify tokens but never mint them.
//
// CLAIMS WE USE:
//
//	sub: the provider's user ID, which is also our users.id primary key
//	sid: the session ID, needed to revoke the session at the provider
//	exp/nbf: validity window, checked by the jwt library
package auth

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the identity carried by a verified token.
type Session struct {
	UserID    string
	SessionID string
}

// SessionVerifier validates provider session tokens against a public key.
type SessionVerifier struct {
	key    *rsa.PublicKey
	leeway time.Duration
}

// NewSessionVerifier parses a PEM-encoded RSA public key. Literal "\n"
// sequences are accepted because keys are usually pasted into a single
// environment variable.
func NewSessionVerifier(pemKey string) (*SessionVerifier, error) {
	pemKey = strings.TrimSpace(strings.ReplaceAll(pemKey, `\n`, "\n"))
	if pemKey == "" {
		return nil, errors.New("auth: session public key is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemKey))
	if err != nil {
		return nil, fmt.Errorf("auth: parsing session public key: %w", err)
	}
	return &SessionVerifier{key: key, leeway: 5 * time.Second}, nil
}

// sessionClaims is the JWT payload. RegisteredClaims covers sub/exp/nbf;
// sid is provider-specific.
type sessionClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Verify parses tokenStr and returns its session.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid for our public key
//   - Algorithm is RS256 (blocks "none" and HS256-with-public-key confusion)
//   - exp is present and in the future, nbf (if set) is in the past,
//     both with a few seconds of clock-skew leeway
func (v *SessionVerifier) Verify(tokenStr string) (*Session, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return v.key, nil
		},
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("auth: token expired")
		}
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	c, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("auth: invalid token claims")
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("auth: token has no subject")
	}

	return &Session{UserID: c.Subject, SessionID: c.SessionID}, nil
}
