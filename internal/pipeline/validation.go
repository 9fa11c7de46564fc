package pipeline

import (
	"strings"

	"github.com/dvloznov/lifeos/internal/domain"
)

// validateSubmission rejects blank text and missing owners.
func validateSubmission(ownerID, text, field string) error {
	if strings.TrimSpace(ownerID) == "" {
		return &InputError{Field: "owner_id", Reason: "missing"}
	}
	if strings.TrimSpace(text) == "" {
		return &InputError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

// labelSet maps normalized labels to their canonical spelling.
type labelSet map[string]string

func newLabelSet(labels []string) labelSet {
	set := make(labelSet, len(labels))
	for _, l := range labels {
		set[normalizeCategory(l)] = l
	}
	return set
}

// canonical returns the vocabulary spelling of label, or label unchanged if
// it is not in the vocabulary. Unknown labels are kept.
func (s labelSet) canonical(label string) string {
	if c, ok := s[normalizeCategory(label)]; ok {
		return c
	}
	return label
}

// canonicalizeEntries rewrites category and priority labels that differ from
// the vocabulary only in case or surrounding space.
func canonicalizeEntries(entries []domain.PlanEntry, categories, priorities labelSet) {
	for i := range entries {
		entries[i].Category = categories.canonical(entries[i].Category)
		entries[i].Priority = priorities.canonical(entries[i].Priority)
	}
}

// normalizeCategory normalizes a label for comparison.
// Converts to uppercase and trims whitespace for case-insensitive comparison.
func normalizeCategory(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}
