package validators

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValidationError(t *testing.T) {
	type listingRequest struct {
		Game        string   `validate:"required"`
		Title       string   `validate:"not_empty"`
		AmountCents int64    `validate:"gt=0"`
		ImageURLs   []string `validate:"max=10,dive,url"`
		AccountID   string   `validate:"uuid4"`
		Status      string   `validate:"oneof=PENDING APPROVED REJECTED"`
	}

	validate := NewValidator()

	err := validate.Struct(&listingRequest{
		Game:        "",
		Title:       "",
		AmountCents: 0,
		ImageURLs:   []string{"not a url"},
		AccountID:   "not-a-uuid",
		Status:      "SOLD",
	})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	fieldErrors := ParseValidationError(validationErrors)
	assert.Equal(t, map[string]interface{}{
		"game":         "This field is required",
		"title":        "This field cannot be empty",
		"amountCents":  "Should be greater than 0",
		"imageURLs[0]": "Invalid URL provided",
		"accountID":    "Invalid identifier provided",
		"status":       `Unexpected value "SOLD". Expected one of the following values: PENDING, APPROVED, REJECTED`,
	}, fieldErrors)
}

func TestParseValidationErrorTooManyImages(t *testing.T) {
	type listingRequest struct {
		ImageURLs []string `validate:"max=2"`
	}

	validate := NewValidator()
	err := validate.Struct(&listingRequest{ImageURLs: []string{"a", "b", "c"}})
	require.Error(t, err)

	var validationErrors validator.ValidationErrors
	require.ErrorAs(t, err, &validationErrors)

	fieldErrors := ParseValidationError(validationErrors)
	assert.Equal(t, map[string]interface{}{
		"imageURLs": "Should have at most 2 elements",
	}, fieldErrors)
}
