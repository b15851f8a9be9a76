package auth

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ResetTokenTTL bounds how long a password-reset token stays valid.
const ResetTokenTTL = time.Hour

// NewResetToken returns a cryptographically random opaque token for the
// forgot-password flow.
func NewResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
