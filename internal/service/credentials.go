package service

import (
	"crypto/subtle"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMarkers are the hash prefixes treated as bcrypt.
var bcryptMarkers = []string{"$2a$", "$2b$", "$2y$"}

// IsHashedSecret reports whether stored carries a recognised bcrypt marker.
func IsHashedSecret(stored string) bool {
	for _, m := range bcryptMarkers {
		if strings.HasPrefix(stored, m) {
			return true
		}
	}
	return false
}

// VerifySecret checks secret against its stored representation.
// The hash-marker check runs first; anything else is compared as plaintext only
// when allowPlaintext is set. Comparison errors count as a mismatch.
func VerifySecret(secret, stored string, allowPlaintext bool) bool {
	if IsHashedSecret(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(secret)) == nil
	}
	if !allowPlaintext || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(secret), []byte(stored)) == 1
}

// HashSecret hashes a new password at the given bcrypt cost.
func HashSecret(secret string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
