package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RefreshTokenBytes is the amount of randomness in a refresh token
const RefreshTokenBytes = 40

// GenerateRefreshToken returns an opaque hex-encoded refresh token.
// Collisions are negligible at this size, so the store is never consulted.
func GenerateRefreshToken() (string, error) {
	b := make([]byte, RefreshTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
