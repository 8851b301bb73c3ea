package validator

import "fmt"

func MinNum[T Numeric](field string, value, min T) Rule {
	return Rule{
		Check: func() bool {
			return value >= min
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %v", min),
			Key:     "validation.min",
			Params:  map[string]any{"min": min},
		},
	}
}

func MaxNum[T Numeric](field string, value, max T) Rule {
	return Rule{
		Check: func() bool {
			return value <= max
		},
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %v", max),
			Key:     "validation.max",
			Params:  map[string]any{"max": max},
		},
	}
}

func NonNegative[T Numeric](field string, value T) Rule {
	var zero T
	return Rule{
		Check: func() bool {
			return value >= zero
		},
		Error: ValidationError{
			Field:   field,
			Message: "must not be negative",
			Key:     "validation.non_negative",
		},
	}
}
