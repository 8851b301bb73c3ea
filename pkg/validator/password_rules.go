package validator

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PasswordPolicy describes an acceptable password. Character classes are
// uppercase, lowercase, digits and symbols (punctuation, spaces).
type PasswordPolicy struct {
	MinLength      int
	MaxLength      int
	MinCharClasses int
	RequireDigit   bool
}

// DefaultPasswordPolicy fits bcrypt's 72 byte input limit.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		MaxLength:      72,
		MinCharClasses: 2,
	}
}

// StrongPassword checks value against policy. MaxLength is in bytes since
// that is what password hashes consume.
func StrongPassword(field, value string, policy PasswordPolicy) Rule {
	return Rule{
		Check: func() bool {
			if utf8.RuneCountInString(value) < policy.MinLength {
				return false
			}
			if policy.MaxLength > 0 && len(value) > policy.MaxLength {
				return false
			}
			var upper, lower, digit, symbol bool
			for _, r := range value {
				switch {
				case unicode.IsUpper(r):
					upper = true
				case unicode.IsLower(r):
					lower = true
				case unicode.IsDigit(r):
					digit = true
				default:
					symbol = true
				}
			}
			if policy.RequireDigit && !digit {
				return false
			}
			classes := 0
			for _, has := range []bool{upper, lower, digit, symbol} {
				if has {
					classes++
				}
			}
			return classes >= policy.MinCharClasses
		},
		Error: ValidationError{
			Field: field,
			Message: fmt.Sprintf("must be %d-%d characters and mix at least %d of: uppercase, lowercase, digits, symbols",
				policy.MinLength, policy.MaxLength, policy.MinCharClasses),
			Key: "validation.password_strength",
			Params: map[string]any{
				"min_length":       policy.MinLength,
				"max_length":       policy.MaxLength,
				"min_char_classes": policy.MinCharClasses,
			},
		},
	}
}

// commonPasswords are frequently breached passwords plus guesses specific to
// panchayat staff accounts.
var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "password12": {}, "password123": {}, "password@123": {},
	"passw0rd": {}, "p@ssw0rd": {}, "p@ssword": {},
	"12345678": {}, "123456789": {}, "1234567890": {}, "12341234": {}, "11111111": {}, "00000000": {},
	"87654321": {}, "987654321": {},
	"qwerty123": {}, "qwertyuiop": {}, "1q2w3e4r": {}, "1qaz2wsx": {}, "zaq12wsx": {}, "asdfghjkl": {},
	"abcd1234": {}, "abc12345": {}, "aa123456": {},
	"iloveyou": {}, "sunshine": {}, "princess": {}, "football": {}, "baseball": {}, "superman": {},
	"letmein1": {}, "welcome1": {}, "welcome123": {}, "trustno1": {}, "whatever": {},
	"admin123": {}, "admin@123": {}, "administrator": {}, "changeme": {}, "secret123": {},
	"india123": {}, "india@123": {}, "bharat123": {}, "jaihind123": {}, "krishna123": {},
	"panchayat": {}, "panchayat1": {}, "panchayat123": {}, "panchayat@123": {},
	"grampanchayat": {}, "gram1234": {}, "sarpanch": {}, "sarpanch123": {},
	"gpportal": {}, "gpportal123": {},
}

// NotCommonPassword rejects well-known passwords, ignoring case.
func NotCommonPassword(field, value string) Rule {
	return Rule{
		Check: func() bool {
			_, common := commonPasswords[strings.ToLower(value)]
			return !common
		},
		Error: ValidationError{
			Field:   field,
			Message: "is too common, choose a different one",
			Key:     "validation.password_common",
		},
	}
}
