package common

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^(\+46|0)[0-9\s-]{8,12}$`)
)

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}

// ValidPhone accepts Swedish numbers, with or without +46, spaces ignored.
func ValidPhone(phone string) bool {
	return phonePattern.MatchString(strings.ReplaceAll(strings.TrimSpace(phone), " ", ""))
}

// NormalizePhone strips spaces and dashes. Buyers are keyed by the result.
func NormalizePhone(phone string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(strings.TrimSpace(phone))
}

func NormalizeReference(ref string) string {
	return strings.ToUpper(strings.TrimSpace(ref))
}

func validateContact(firstName, lastName, email, phone string) error {
	if firstName == "" || lastName == "" || email == "" || phone == "" {
		return NewValidationError(CodeMissingFields, "first name, last name, email and phone are required")
	}
	if !ValidEmail(email) {
		return NewValidationError(CodeInvalidEmail, email)
	}
	if !ValidPhone(phone) {
		return NewValidationError(CodeInvalidPhone, phone)
	}
	return nil
}
