package service

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Input limits.
const (
	MaxNameLength     = 255
	MaxEmailLength    = 320
	MinHandleLength   = 3
	MaxHandleLength   = 255
	MinPasswordLength = 8
	MaxPasswordLength = 128
	MaxTitleLength    = 255
)

func required(field, label, value string) *ValidationError {
	if strings.TrimSpace(value) == "" {
		return invalid(field, fmt.Sprintf("The %s field is required.", label))
	}
	return nil
}

func maxLen(field, label, value string, max int) *ValidationError {
	if utf8.RuneCountInString(value) > max {
		return invalid(field, fmt.Sprintf("The %s field must not be greater than %d characters.", label, max))
	}
	return nil
}

func minLen(field, label, value string, min int) *ValidationError {
	if utf8.RuneCountInString(value) < min {
		return invalid(field, fmt.Sprintf("The %s field must be at least %d characters.", label, min))
	}
	return nil
}

// first returns the first non-nil check as an error.
func first(checks ...*ValidationError) error {
	for _, c := range checks {
		if c != nil {
			return c
		}
	}
	return nil
}

// ValidateListName checks a task list name.
func ValidateListName(name string) error {
	if err := required("name", "name", name); err != nil {
		return err
	}
	return first(maxLen("name", "name", name, MaxNameLength))
}

// ValidateTitle checks a task title.
func ValidateTitle(title string) error {
	if err := required("title", "title", title); err != nil {
		return err
	}
	return first(maxLen("title", "title", title, MaxTitleLength))
}

func validateEmail(email string, max int) error {
	if err := required("email", "email", email); err != nil {
		return err
	}
	if err := maxLen("email", "email", email, max); err != nil {
		return err
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return invalid("email", "The email field must be a valid email address.")
	}
	return nil
}

func validateHandle(handle string) error {
	if err := required("user_name", "user name", handle); err != nil {
		return err
	}
	return first(
		minLen("user_name", "user name", handle, MinHandleLength),
		maxLen("user_name", "user name", handle, MaxHandleLength),
	)
}

func validateName(name string) error {
	if err := required("name", "name", name); err != nil {
		return err
	}
	return first(maxLen("name", "name", name, MaxNameLength))
}

// ValidatePassword enforces length plus at least one upper case letter,
// one lower case letter, one digit and one symbol.
func ValidatePassword(password string) error {
	if password == "" {
		return invalid("password", "The password field is required.")
	}
	if err := first(
		minLen("password", "password", password, MinPasswordLength),
		maxLen("password", "password", password, MaxPasswordLength),
	); err != nil {
		return err
	}

	var upper, lower, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsSpace(r) && !unicode.IsLetter(r) && r != '_':
			symbol = true
		}
	}
	if !upper || !lower || !digit || !symbol {
		return invalid("password", "The password field format is invalid.")
	}
	return nil
}

// RegisterInput is the registration form.
type RegisterInput struct {
	Name            string
	Email           string
	Handle          string
	Password        string
	ConfirmPassword string
}

// Validate checks fields in form order and reports the first failure.
func (in RegisterInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateEmail(in.Email, MaxEmailLength); err != nil {
		return err
	}
	if err := validateHandle(in.Handle); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if in.ConfirmPassword == "" {
		return invalid("confirm_password", "The confirm password field is required.")
	}
	if in.ConfirmPassword != in.Password {
		return invalid("confirm_password", "The confirm password field must match password.")
	}
	return nil
}

// ProfileInput is the profile update form.
type ProfileInput struct {
	Name   string
	Handle string
	Email  string
}

// Validate checks fields in form order and reports the first failure.
func (in ProfileInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := validateHandle(in.Handle); err != nil {
		return err
	}
	return validateEmail(in.Email, MaxNameLength)
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string
	Password string
}

// Validate checks presence and email shape only; wrong credentials are
// reported by Login as ErrInvalidCredentials.
func (in LoginInput) Validate() error {
	if err := validateEmail(in.Email, MaxEmailLength); err != nil {
		return err
	}
	if in.Password == "" {
		return invalid("password", "The password field is required.")
	}
	return nil
}
