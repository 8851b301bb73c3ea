package validator

import (
	"fmt"
	"slices"
)

// InList fails when value is not one of allowed.
func InList[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool {
			return slices.Contains(allowed, value)
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("unknown value %v", value),
			Key:     "validation.in_list",
			Params:  map[string]any{"value": value},
		},
	}
}

// NotDuplicate fails when value occurs more than once in values.
func NotDuplicate[T comparable](field string, value T, values []T) Rule {
	return Rule{
		Check: func() bool {
			n := 0
			for _, v := range values {
				if v == value {
					n++
				}
			}
			return n <= 1
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("duplicate value %v", value),
			Key:     "validation.duplicate",
			Params:  map[string]any{"value": value},
		},
	}
}
