package validator

import (
	"net/mail"
	"net/url"
	"slices"
	"strings"
)

// ValidEmail accepts a bare RFC 5322 address whose domain has at least two
// labels. Display names ("Asha <asha@gp.in>") are rejected.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Name != "" || addr.Address != strings.TrimSpace(value) {
				return false
			}
			local, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || local == "" {
				return false
			}
			if !strings.Contains(domain, ".") {
				return false
			}
			for label := range strings.SplitSeq(domain, ".") {
				if label == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be a valid email address",
			Key:     "validation.email",
		},
	}
}

// ValidURL accepts absolute URLs with a host and one of schemes.
func ValidURL(field, value string, schemes ...string) Rule {
	if len(schemes) == 0 {
		schemes = []string{"http", "https"}
	}
	return Rule{
		Check: func() bool {
			u, err := url.Parse(value)
			if err != nil || u.Host == "" {
				return false
			}
			return slices.Contains(schemes, strings.ToLower(u.Scheme))
		},
		Error: ValidationError{
			Field:   field,
			Message: "must be an absolute " + strings.Join(schemes, " or ") + " URL",
			Key:     "validation.url",
			Params:  map[string]any{"schemes": schemes},
		},
	}
}
