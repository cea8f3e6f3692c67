// Package user provides user accounts and password hashing.
package user

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/scrypt"
)

// User is an account that owns clients, visits, and invoices.
// BusinessHours holds the JSON-encoded schedule parsed by internal/schedule.
type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Password      string    `json:"-"`
	BusinessType  string    `json:"businessType"`
	BusinessHours string    `json:"businessHours"`
	CreatedAt     time.Time `json:"createdAt"`
}

const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltBytes    = 16
)

// HashPassword derives a scrypt hash, stored as "hex(key).hex(salt)".
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}

	key, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("deriving key: %w", err)
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// CheckPassword verifies a password against a stored hash in constant time.
func CheckPassword(password, stored string) bool {
	parts := strings.SplitN(stored, ".", 2)
	if len(parts) != 2 {
		return false
	}

	key, err := hex.DecodeString(parts[0])
	if err != nil {
		return false
	}
	salt, err := hex.DecodeString(parts[1])
	if err != nil {
		return false
	}

	derived, err := scrypt.Key([]byte(password), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, derived) == 1
}
