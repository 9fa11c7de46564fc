// Package extract pulls amount, direction and counterpart out of bank SMS
// notifications using a fixed set of patterns.
package extract

import (
	"regexp"
	"strings"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultVendors is the ordered vendor list checked against the text.
// Earlier entries win when several vendors appear in the same message.
var DefaultVendors = []string{
	"Swiggy", "Zomato", "Paytm", "PhonePe", "GPay", "Netflix",
	"Amazon", "Flipkart", "BigBazaar", "DMart", "Petrol", "Groceries",
	"Uber", "Ola", "Spotify", "YouTube", "Rent",
}

var (
	amountPattern = regexp.MustCompile(`(?i)(?:\bRs\.?|\bINR|₹)\s*(\d[\d,]*(?:\.\d+)?)`)

	// Name after "for"/"to", up to a period, end of text or a trailing
	// UPI/Ref/A/c marker.
	phrasePattern = regexp.MustCompile(`(?i)\b(?:for|to)\s+([A-Za-z0-9\s]+?)(?:\.|$|UPI|Ref|A/c)`)
)

const creditKeyword = "credited"

// Fields is what a single notification yields. Every field is always set.
type Fields struct {
	Amount      decimal.Decimal
	Direction   domain.Direction
	Counterpart string

	// CategorySignal is the canonical name of the vendor that matched, or
	// empty when the counterpart came from the phrase fallback.
	CategorySignal string
}

type vendorPattern struct {
	name    string
	pattern *regexp.Regexp
}

// Extractor applies the amount, direction and counterpart rules. It holds no
// mutable state and is safe for concurrent use.
type Extractor struct {
	vendors []vendorPattern
}

// NewExtractor builds an extractor for the given vendor list, in priority
// order. With no vendors it uses DefaultVendors.
func NewExtractor(vendors ...string) *Extractor {
	if len(vendors) == 0 {
		vendors = DefaultVendors
	}

	e := &Extractor{}
	for _, v := range vendors {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		e.vendors = append(e.vendors, vendorPattern{
			name:    v,
			pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(v)),
		})
	}
	return e
}

// Vendors returns the canonical vendor names in match order.
func (e *Extractor) Vendors() []string {
	names := make([]string, len(e.vendors))
	for i, v := range e.vendors {
		names[i] = v.name
	}
	return names
}

// Extract never fails. Missing pieces come back as their defaults: zero
// amount, Debit, and the "Unknown" counterpart.
func (e *Extractor) Extract(text string) Fields {
	fields := Fields{
		Amount:      extractAmount(text),
		Direction:   extractDirection(text),
		Counterpart: domain.UnknownCounterpart,
	}

	for _, v := range e.vendors {
		if loc := v.pattern.FindStringIndex(text); loc != nil {
			fields.Counterpart = text[loc[0]:loc[1]]
			fields.CategorySignal = v.name
			return fields
		}
	}

	if m := phrasePattern.FindStringSubmatch(text); m != nil {
		if name := strings.TrimSpace(m[1]); name != "" {
			fields.Counterpart = name
		}
	}
	return fields
}

func extractAmount(text string) decimal.Decimal {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return decimal.Zero
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return amount
}

func extractDirection(text string) domain.Direction {
	if strings.Contains(strings.ToLower(text), creditKeyword) {
		return domain.DirectionCredit
	}
	return domain.DirectionDebit
}
