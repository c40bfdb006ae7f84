package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword checks if a password matches a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// IsBlank reports whether s is empty or only whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// ContainsDigit reports whether s has at least one decimal digit.
func ContainsDigit(s string) bool {
	return strings.IndexFunc(s, unicode.IsDigit) >= 0
}

// ContainsSpace reports whether s has any whitespace rune.
func ContainsSpace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}
