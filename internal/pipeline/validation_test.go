package pipeline

import (
	"errors"
	"testing"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCategory(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "work", "WORK"},
		{"mixed case", "Very High", "VERY HIGH"},
		{"surrounding space", "  Health  ", "HEALTH"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeCategory(tt.input))
		})
	}
}

func TestValidateSubmission(t *testing.T) {
	tests := []struct {
		name      string
		owner     string
		text      string
		wantField string
	}{
		{"valid", "user-1", "Rs 10 debited", ""},
		{"missing owner", "", "Rs 10 debited", "owner_id"},
		{"blank owner", "   ", "Rs 10 debited", "owner_id"},
		{"empty text", "user-1", "", "text"},
		{"whitespace text", "user-1", " \n\t", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSubmission(tt.owner, tt.text, "text")
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var inputErr *InputError
			require.True(t, errors.As(err, &inputErr))
			assert.Equal(t, tt.wantField, inputErr.Field)
		})
	}
}

func TestCanonicalizeEntries(t *testing.T) {
	entries := []domain.PlanEntry{
		{Description: "a", Category: "work", Priority: "very high"},
		{Description: "b", Category: " Health ", Priority: "LOW"},
		{Description: "c", Category: "Gardening", Priority: "Urgent"},
		{Description: "d"},
	}

	canonicalizeEntries(entries, newLabelSet(DefaultPlanCategories), newLabelSet(DefaultPlanPriorities))

	assert.Equal(t, "Work", entries[0].Category)
	assert.Equal(t, "Very High", entries[0].Priority)
	assert.Equal(t, "Health", entries[1].Category)
	assert.Equal(t, "Low", entries[1].Priority)
	// Labels outside the vocabulary are kept as given.
	assert.Equal(t, "Gardening", entries[2].Category)
	assert.Equal(t, "Urgent", entries[2].Priority)
	assert.Equal(t, "", entries[3].Category)
}
