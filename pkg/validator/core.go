package validator

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

type Numeric interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// ValidationError is a single failed rule. Key is a stable identifier for
// the failure kind, such as "validation.email".
type ValidationError struct {
	Field   string
	Message string
	Key     string
	Params  map[string]any
}

// ValidationErrors is a collection of failed rules.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}

	parts := make([]string, 0, len(ve))
	for _, err := range ve {
		parts = append(parts, fmt.Sprintf("%s: %s", err.Field, err.Message))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

func (ve *ValidationErrors) Add(err ValidationError) {
	*ve = append(*ve, err)
}

func (ve ValidationErrors) Has(field string) bool {
	return slices.ContainsFunc(ve, func(e ValidationError) bool { return e.Field == field })
}

// Get returns the messages recorded for field in order.
func (ve ValidationErrors) Get(field string) []string {
	var messages []string
	for _, err := range ve {
		if err.Field == field {
			messages = append(messages, err.Message)
		}
	}
	return messages
}

// Fields returns the failed fields in first-seen order.
func (ve ValidationErrors) Fields() []string {
	var fields []string
	for _, err := range ve {
		if !slices.Contains(fields, err.Field) {
			fields = append(fields, err.Field)
		}
	}
	return fields
}

// FieldErrors groups the messages by field.
func (ve ValidationErrors) FieldErrors() map[string][]string {
	out := make(map[string][]string)
	for _, err := range ve {
		out[err.Field] = append(out[err.Field], err.Message)
	}
	return out
}

func (ve ValidationErrors) IsEmpty() bool {
	return len(ve) == 0
}

// Rule is a single check and the error reported when it fails.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// When returns r when cond holds and a rule that always passes otherwise.
func (r Rule) When(cond bool) Rule {
	if cond {
		return r
	}
	return Rule{Check: func() bool { return true }, Error: r.Error}
}

// Collect runs every rule and returns the failures. It never returns an
// error value, so callers can merge the result into a larger collection.
func Collect(rules ...Rule) ValidationErrors {
	var errs ValidationErrors
	for _, rule := range rules {
		if !rule.Check() {
			errs = append(errs, rule.Error)
		}
	}
	return errs
}

// Apply runs every rule and returns ValidationErrors, or nil when all pass.
func Apply(rules ...Rule) error {
	if errs := Collect(rules...); !errs.IsEmpty() {
		return errs
	}
	return nil
}

// ExtractValidationErrors returns the ValidationErrors inside err, if any.
func ExtractValidationErrors(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}

func IsValidationError(err error) bool {
	var ve ValidationErrors
	return errors.As(err, &ve)
}
