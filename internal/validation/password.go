package validation

import (
	"errors"
	"strings"
)

const (
	PasswordMinLength = 12
	// bcrypt silently truncates anything longer
	PasswordMaxLength = 72
)

var commonPatterns = []string{
	"password", "123456", "qwerty", "admin", "letmein",
	"welcome", "monkey", "dragon", "master", "sunshine",
}

// ValidatePassword enforces a minimum length of 12 characters and blocks common patterns.
func ValidatePassword(password string) error {
	if len(password) < PasswordMinLength {
		return errors.New("password should be at least 12 characters")
	}

	if len(password) > PasswordMaxLength {
		return errors.New("password should be at most 72 characters")
	}

	lower := strings.ToLower(password)
	for _, pattern := range commonPatterns {
		if strings.Contains(lower, pattern) {
			return errors.New("password is known to be weak and easy to guess, please choose a different one")
		}
	}

	return nil
}
