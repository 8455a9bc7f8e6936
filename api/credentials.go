package api

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"colorfulez-server/config"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72 // bcrypt limit is 72 bytes
)

var (
	ErrPasswordTooShort   = fmt.Errorf("password must be at least %d characters long", MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d characters long", MaxPasswordLength)
	ErrPasswordTooSimple  = errors.New("password needs an uppercase letter, a lowercase letter, a digit and a symbol")
	ErrPasswordHasSpaces  = errors.New("password must not contain spaces")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAdminNotConfigured = errors.New("admin account not configured")
)

// ValidatePassword checks the admin password complexity rules.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	var upper, lower, digit, special bool
	for _, char := range password {
		switch {
		case unicode.IsSpace(char):
			return ErrPasswordHasSpaces
		case unicode.IsUpper(char):
			upper = true
		case unicode.IsLower(char):
			lower = true
		case unicode.IsDigit(char):
			digit = true
		case unicode.IsPunct(char) || unicode.IsSymbol(char):
			special = true
		}
	}
	if !upper || !lower || !digit || !special {
		return ErrPasswordTooSimple
	}
	return nil
}

// Admin is the single operator account allowed to use the admin API.
type Admin struct {
	Username string
	hash     []byte
}

// NewAdmin builds the admin account from config. A configured bcrypt hash wins
// over the plain password, which is hashed once at startup.
func NewAdmin(cfg config.Config) (*Admin, error) {
	username := strings.TrimSpace(cfg.AdminUsername)
	if username == "" {
		return nil, ErrAdminNotConfigured
	}
	if cfg.AdminPasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(cfg.AdminPasswordHash)); err != nil {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH: %w", err)
		}
		return &Admin{Username: username, hash: []byte(cfg.AdminPasswordHash)}, nil
	}
	if err := ValidatePassword(cfg.AdminPassword); err != nil {
		return nil, fmt.Errorf("ADMIN_PASSWORD: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Admin account %q ready", username)
	return &Admin{Username: username, hash: hash}, nil
}

// Verify checks a login attempt.
func (a *Admin) Verify(username, password string) error {
	if a == nil || strings.TrimSpace(username) != a.Username {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
