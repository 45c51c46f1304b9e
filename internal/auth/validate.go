package auth

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
)

// Username constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	walletPattern   = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
)

// ValidateUsername checks length and the alphanumeric+underscore alphabet.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return validationError("username", "must be between 3 and 30 characters")
	}
	if !usernamePattern.MatchString(username) {
		return validationError("username", "may contain only letters, numbers, and underscores")
	}
	return nil
}

// ValidateEmail accepts a bare RFC 5322 address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return validationError("email", "must be a valid email address")
	}
	return nil
}

// ValidateWalletAddress checks the 0x-prefixed 20-byte hex shape. Ownership is not proven.
func ValidateWalletAddress(wallet string) error {
	if !walletPattern.MatchString(wallet) {
		return validationError("walletAddress", "must be a 0x-prefixed 40 character hex address")
	}
	return nil
}

// ValidatePassword requires a minimum length and mixed case plus a digit.
func ValidatePassword(field, password string) error {
	if len(password) < MinPasswordLength {
		return validationError(field, "must be at least 8 characters")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return validationError(field, "must contain an uppercase letter, a lowercase letter, and a number")
	}
	return nil
}

// ValidateRegistration checks every registration field.
func ValidateRegistration(in RegisterInput) error {
	if err := ValidateUsername(in.Username); err != nil {
		return err
	}
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword("password", in.Password); err != nil {
		return err
	}
	return ValidateWalletAddress(in.WalletAddress)
}

// ValidateProfileUpdate checks only the fields present in the update.
func ValidateProfileUpdate(in ProfileUpdate) error {
	if in.Username != nil {
		if err := ValidateUsername(*in.Username); err != nil {
			return err
		}
	}
	if in.Email != nil {
		if err := ValidateEmail(*in.Email); err != nil {
			return err
		}
	}
	if in.WalletAddress != nil {
		if err := ValidateWalletAddress(*in.WalletAddress); err != nil {
			return err
		}
	}
	return nil
}

// Field pairs an input name with its value for presence checks.
type Field struct {
	Name  string
	Value string
}

// RequireNonEmpty reports the first blank field, in argument order.
func RequireNonEmpty(fields ...Field) error {
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			return validationError(f.Name, "is required")
		}
	}
	return nil
}
