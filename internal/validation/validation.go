package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var reservedUsernames = map[string]struct{}{
	"admin":   {},
	"api":     {},
	"auth":    {},
	"posts":   {},
	"users":   {},
	"swagger": {},
	"metrics": {},
	"login":   {},
	"register": {},
	"uploads": {},
}

// ValidateUsername validates username format and reserved names.
func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("username must be 3-30 characters and contain only letters, numbers, hyphens, and underscores")
	}

	if strings.HasPrefix(username, "-") || strings.HasSuffix(username, "-") {
		return fmt.Errorf("username cannot start or end with a hyphen")
	}

	if _, exists := reservedUsernames[strings.ToLower(username)]; exists {
		return fmt.Errorf("username is reserved")
	}

	return nil
}

// ValidateEmail validates email address format.
func ValidateEmail(email string) error {
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return fmt.Errorf("invalid email address")
	}
	return nil
}

// ValidatePassword enforces minimum password requirements.
func ValidatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("password must be at least 6 characters long")
	}
	if len(password) > 128 {
		return fmt.Errorf("password must be at most 128 characters long")
	}
	for _, r := range password {
		if !unicode.IsPrint(r) {
			return fmt.Errorf("password contains invalid characters")
		}
	}
	return nil
}
