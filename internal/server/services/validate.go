package services

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/shelfkeeper/internal/common"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 72
	MinUsernameLength = 3
	MaxUsernameLength = 100
	MaxNameLength     = 255
)

// ReservedSubdomains cannot be registered as tenants.
var ReservedSubdomains = []string{"www", "api", "admin", "localhost"}

var (
	subdomainRe = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	usernameRe  = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrValidation, fmt.Sprintf(format, args...))
}

func ValidatePassword(p string) error {
	n := utf8.RuneCountInString(p)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return invalid("password must be %d-%d characters", MinPasswordLength, MaxPasswordLength)
	}
	return nil
}

func ValidateUsername(u string) error {
	n := utf8.RuneCountInString(u)
	if n < MinUsernameLength || n > MaxUsernameLength {
		return invalid("username must be %d-%d characters", MinUsernameLength, MaxUsernameLength)
	}
	if !usernameRe.MatchString(u) {
		return invalid("username contains unsupported characters")
	}
	return nil
}

// NormalizeSubdomain lower-cases sub and checks it can be registered.
func NormalizeSubdomain(sub string) (string, error) {
	sub = strings.ToLower(strings.TrimSpace(sub))
	if !subdomainRe.MatchString(sub) {
		return "", invalid("subdomain must be 1-63 lowercase letters, digits or hyphens")
	}
	if slices.Contains(ReservedSubdomains, sub) {
		return "", invalid("subdomain %q is reserved", sub)
	}
	return sub, nil
}

func validateName(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" || utf8.RuneCountInString(v) > MaxNameLength {
		return "", invalid("%s must be 1-%d characters", field, MaxNameLength)
	}
	return v, nil
}

// NormalizeISBN strips hyphens and spaces. An empty value is allowed;
// anything else must be 10 or 13 digits (ISBN-10 may end with X).
func NormalizeISBN(isbn string) (string, error) {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if isbn == "" {
		return "", nil
	}
	isbn = strings.ToUpper(isbn)

	switch len(isbn) {
	case 10:
		if !allDigits(isbn[:9]) || !(allDigits(isbn[9:]) || isbn[9] == 'X') {
			return "", invalid("isbn must have 10 or 13 digits")
		}
	case 13:
		if !allDigits(isbn) {
			return "", invalid("isbn must have 10 or 13 digits")
		}
	default:
		return "", invalid("isbn must have 10 or 13 digits")
	}
	return isbn, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
