// Package classify assigns a category label to an extracted transaction.
package classify

import (
	"strings"

	"github.com/dvloznov/lifeos/internal/domain"
)

// Predicate tests a transaction's counterpart and raw text.
type Predicate func(counterpart, rawText string) bool

// Rule pairs a predicate with the label it assigns.
type Rule struct {
	Label string
	Match Predicate
}

// CounterpartContains matches when the counterpart contains any of the names,
// ignoring case.
func CounterpartContains(names ...string) Predicate {
	needles := lowerAll(names)
	return func(counterpart, _ string) bool {
		return containsAny(strings.ToLower(counterpart), needles)
	}
}

// TextContains matches when the raw text contains any of the keywords,
// ignoring case.
func TextContains(keywords ...string) Predicate {
	needles := lowerAll(keywords)
	return func(_, rawText string) bool {
		return containsAny(strings.ToLower(rawText), needles)
	}
}

// Any matches when at least one of the predicates matches.
func Any(preds ...Predicate) Predicate {
	return func(counterpart, rawText string) bool {
		for _, p := range preds {
			if p(counterpart, rawText) {
				return true
			}
		}
		return false
	}
}

// DefaultRules returns the built-in precedence list. Order matters: a
// message mentioning both a payment app and a restaurant is "Food & Dining".
func DefaultRules() []Rule {
	return []Rule{
		{Label: "Food & Dining", Match: CounterpartContains("Swiggy", "Zomato")},
		{Label: "Payments", Match: Any(CounterpartContains("Paytm", "PhonePe", "GPay"), TextContains("upi"))},
		{Label: "Subscriptions", Match: CounterpartContains("Netflix", "Spotify", "YouTube")},
		{Label: "Shopping", Match: CounterpartContains("Amazon", "Flipkart")},
		{Label: "Transport", Match: Any(TextContains("petrol"), CounterpartContains("Uber", "Ola"))},
		{Label: "Groceries", Match: Any(TextContains("groceries"), CounterpartContains("BigBazaar", "DMart"))},
		{Label: "Housing", Match: TextContains("rent")},
	}
}

// Classifier evaluates rules in order and returns the first matching label.
type Classifier struct {
	rules []Rule
}

// NewClassifier creates a classifier over rules. A nil slice means
// DefaultRules; rules with an empty label or nil predicate are skipped.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	c := &Classifier{}
	for _, r := range rules {
		if strings.TrimSpace(r.Label) == "" || r.Match == nil {
			continue
		}
		c.rules = append(c.rules, r)
	}
	return c
}

// Classify returns the label of the first matching rule, or
// domain.CategoryUncategorized.
func (c *Classifier) Classify(counterpart, rawText string) string {
	for _, r := range c.rules {
		if r.Match(counterpart, rawText) {
			return r.Label
		}
	}
	return domain.CategoryUncategorized
}

// Labels lists every label the classifier can return, in rule order,
// ending with the fallback.
func (c *Classifier) Labels() []string {
	seen := make(map[string]bool, len(c.rules)+1)
	labels := make([]string, 0, len(c.rules)+1)
	for _, r := range c.rules {
		if !seen[r.Label] {
			seen[r.Label] = true
			labels = append(labels, r.Label)
		}
	}
	if !seen[domain.CategoryUncategorized] {
		labels = append(labels, domain.CategoryUncategorized)
	}
	return labels
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
