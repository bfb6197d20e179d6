package service

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 32
	// passwordSpecials is the fixed set of characters that satisfy the special-character rule.
	passwordSpecials = "!@#$%^&*()-_=+[]{};:'\",.<>/?\\|`~"
)

var simpleEmail = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

func validateEmail(email string) error {
	if email == "" {
		return errors.New("email is required")
	}
	if !simpleEmail.MatchString(email) {
		return errors.New("invalid email format")
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}
	if n := utf8.RuneCountInString(password); n < minPasswordLen || n > maxPasswordLen {
		return errors.New("password must be between 8 and 32 characters")
	}
	var hasUpper, hasLower, hasNumber, hasSymbol bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			hasUpper = true
		case r >= 'a' && r <= 'z':
			hasLower = true
		case r >= '0' && r <= '9':
			hasNumber = true
		case strings.ContainsRune(passwordSpecials, r):
			hasSymbol = true
		}
	}
	if !hasUpper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !hasLower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !hasNumber {
		return errors.New("password must contain at least one number")
	}
	if !hasSymbol {
		return errors.New("password must contain at least one special character")
	}
	return nil
}
