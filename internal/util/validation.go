package util

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	e164Regex       = regexp.MustCompile(`^\+[1-9][0-9]{7,14}$`)
	zimbabweMSISDN  = regexp.MustCompile(`^\+263[0-9]{9}$`)
	referenceFormat = regexp.MustCompile(`^ZW-[0-9]{4}-[0-9]{4}$`)
)

// IsValidPhone reports whether s is an E.164 number.
func IsValidPhone(s string) bool {
	return e164Regex.MatchString(s)
}

// IsZimbabweanPhone reports whether s is a +263 number with nine subscriber digits.
func IsZimbabweanPhone(s string) bool {
	return zimbabweMSISDN.MatchString(s)
}

func IsValidEmail(s string) bool {
	if s == "" || len(s) > 200 {
		return false
	}
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s
}

func IsValidReference(s string) bool {
	return referenceFormat.MatchString(s)
}

// NameLength counts runes of the trimmed name.
func NameLength(s string) int {
	return utf8.RuneCountInString(strings.TrimSpace(s))
}

// MaskPhone keeps the last four digits of a phone number for logging.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
