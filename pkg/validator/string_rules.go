package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	slugRegex     = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
)

// RequiredString fails on empty or whitespace-only values.
func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return strings.TrimSpace(value) != ""
		},
		Error: ValidationError{
			Field:   field,
			Message: "is required",
			Key:     "validation.required",
		},
	}
}

// MinLenString counts runes, not bytes.
func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %d characters long", min),
			Key:     "validation.min_length",
			Params:  map[string]any{"min": min},
		},
	}
}

// MaxLenString counts runes, not bytes.
func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool {
			return utf8.RuneCountInString(value) <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters long", max),
			Key:     "validation.max_length",
			Params:  map[string]any{"max": max},
		},
	}
}

// ValidSlug accepts lowercase alphanumeric words joined by single dashes or
// underscores. Empty values fail.
func ValidSlug(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return slugRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must contain only lowercase letters, digits, dashes and underscores",
			Key:     "validation.slug",
		},
	}
}

// ValidCurrencyCode accepts three uppercase letters, as in ISO 4217.
func ValidCurrencyCode(field, value string) Rule {
	return Rule{
		Check: func() bool {
			return currencyRegex.MatchString(value)
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a three letter ISO code",
			Key:     "validation.currency",
		},
	}
}
