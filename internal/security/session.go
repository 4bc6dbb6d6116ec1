package security

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

// MaxSessionIDLength bounds client-supplied session IDs.
const MaxSessionIDLength = 64

var validSessionIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

var blockedSessionPatterns = []string{
	"__proto__",
	"constructor",
}

// GenerateSessionID creates a random 32 character hex session ID.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// ValidateSessionID checks if a session ID is valid and safe.
// Returns an error message if invalid, empty string if valid.
func ValidateSessionID(id string) string {
	if id == "" {
		return "session ID is required"
	}
	if len(id) > MaxSessionIDLength {
		return "session ID too long (max 64 characters)"
	}
	if !validSessionIDPattern.MatchString(id) {
		return "session ID contains invalid characters (use alphanumeric, hyphens, underscores only)"
	}

	idLower := strings.ToLower(id)
	for _, pattern := range blockedSessionPatterns {
		if strings.Contains(idLower, pattern) {
			return "session ID contains blocked pattern"
		}
	}
	return ""
}
