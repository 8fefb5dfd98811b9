package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

const (
	// SessionCookieName is the HTTP cookie carrying the session bearer token.
	SessionCookieName = "hulugan.session"

	// SessionDuration is the default session lifetime (12 hours)
	SessionDuration = 12 * time.Hour

	// TokenLength is the length of generated bearer tokens in bytes
	TokenLength = 32
)

// GenerateBearerToken generates a cryptographically secure random bearer token
// Returns: token (hex string), token hash (SHA256 hex), error
func GenerateBearerToken() (string, string, error) {
	tokenBytes := make([]byte, TokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", "", fmt.Errorf("generate random token: %w", err)
	}

	token := hex.EncodeToString(tokenBytes)

	// Hash for storage
	hash := sha256.Sum256([]byte(token))
	tokenHash := hex.EncodeToString(hash[:])

	return token, tokenHash, nil
}

// HashBearerToken hashes a bearer token for storage/lookup
// Returns SHA256 hex hash
func HashBearerToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// CalculateExpiry calculates session expiry time from creation
func CalculateExpiry(createdAt time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		ttl = SessionDuration
	}
	return createdAt.Add(ttl)
}

// IsSessionExpired checks if a session has expired
func IsSessionExpired(expiresAt time.Time) bool {
	return time.Now().After(expiresAt)
}

// ValidateSessionToken performs comprehensive session validation
// Checks expiration, revocation, and user status
func ValidateSessionToken(expiresAt time.Time, revoked bool, userDisabled bool) error {
	if IsSessionExpired(expiresAt) {
		return fmt.Errorf("session expired")
	}

	if revoked {
		return fmt.Errorf("session revoked")
	}

	if userDisabled {
		return fmt.Errorf("user disabled")
	}

	return nil
}
