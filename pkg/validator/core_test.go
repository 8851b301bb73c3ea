package validator_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/gpportal/pkg/validator"
)

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("all rules pass", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.RequiredString("name", "Rampur"),
			validator.MinNum("duration", 1, 1),
		)
		assert.NoError(t, err)
	})

	t.Run("collects every failure", func(t *testing.T) {
		t.Parallel()
		err := validator.Apply(
			validator.RequiredString("name", "  "),
			validator.MinNum("duration", 0, 1),
			validator.NonNegative("amount", int64(-5)),
			validator.MaxLenString("name", "  ", 1),
		)
		require.Error(t, err)
		assert.ErrorIs(t, err, validator.ErrValidationFailed)
		assert.True(t, validator.IsValidationError(err))

		ve := validator.ExtractValidationErrors(err)
		assert.Equal(t, []string{"name", "duration", "amount"}, ve.Fields())
		assert.Equal(t, []string{"is required", "must be at most 1 characters long"}, ve.Get("name"))
		assert.True(t, ve.Has("amount"))
		assert.False(t, ve.Has("currency"))
		assert.Equal(t, map[string][]string{
			"name":     {"is required", "must be at most 1 characters long"},
			"duration": {"must be at least 1"},
			"amount":   {"must not be negative"},
		}, ve.FieldErrors())
		assert.Contains(t, err.Error(), "duration: must be at least 1")
	})

	t.Run("wrapped errors are still found", func(t *testing.T) {
		t.Parallel()
		err := fmt.Errorf("create plan: %w", validator.Apply(validator.RequiredString("id", "")))
		assert.True(t, validator.IsValidationError(err))
		assert.Len(t, validator.ExtractValidationErrors(err), 1)
		assert.Nil(t, validator.ExtractValidationErrors(errors.New("boom")))
	})

	t.Run("conditional rules", func(t *testing.T) {
		t.Parallel()
		rule := validator.RequiredString("external_price_id", "")
		assert.NoError(t, validator.Apply(rule.When(false)))
		assert.Error(t, validator.Apply(rule.When(true)))
	})
}

func TestValidationErrors_Add(t *testing.T) {
	t.Parallel()

	var ve validator.ValidationErrors
	assert.True(t, ve.IsEmpty())
	assert.Equal(t, "validation failed", ve.Error())

	ve.Add(validator.ValidationError{Field: "plan_id", Message: "is required"})
	assert.False(t, ve.IsEmpty())
	assert.Equal(t, "validation failed: plan_id: is required", ve.Error())
}
