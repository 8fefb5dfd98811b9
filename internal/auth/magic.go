package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MagicLinkDuration is the default validity window of a login link.
	MagicLinkDuration = 15 * time.Minute

	magicLinkIssuer   = "hulugan"
	magicLinkAudience = "hulugan:login"
)

// LoginClaims are the JWT claims carried by a magic link token. The ID claim
// (jti) is the primary key of the backing login_tokens row, which is marked
// consumed on first use.
type LoginClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// MintLoginToken signs a short-lived magic link JWT bound to a stored
// login token row via jti.
func MintLoginToken(secret []byte, jti, email string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = MagicLinkDuration
	}
	now := time.Now()

	claims := LoginClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    magicLinkIssuer,
			Audience:  jwt.ClaimStrings{magicLinkAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign login token: %w", err)
	}
	return signed, nil
}

// ParseLoginToken verifies a magic link JWT and returns its claims. Signature,
// issuer, audience and expiry are all checked; the caller still has to consume
// the backing login token row for single-use enforcement.
func ParseLoginToken(secret []byte, tokenString string) (*LoginClaims, error) {
	claims := new(LoginClaims)
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	},
		jwt.WithIssuer(magicLinkIssuer),
		jwt.WithAudience(magicLinkAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse login token: %w", err)
	}

	if claims.ID == "" {
		return nil, fmt.Errorf("login token missing jti claim")
	}
	if claims.Email == "" {
		return nil, fmt.Errorf("login token missing email claim")
	}

	return claims, nil
}
