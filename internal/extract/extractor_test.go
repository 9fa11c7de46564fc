package extract

import (
	"testing"

	"github.com/dvloznov/lifeos/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		amount      string
		direction   domain.Direction
		counterpart string
		signal      string
	}{
		{
			name:        "swiggy debit",
			text:        "Rs.150.00 debited from your A/c XXXX for Swiggy. Ref No. 123456789. Avl Bal Rs. 5000.00.",
			amount:      "150.00",
			direction:   domain.DirectionDebit,
			counterpart: "Swiggy",
			signal:      "Swiggy",
		},
		{
			name:        "paytm credit keeps text casing",
			text:        "Your A/c is credited with Rs. 2000.00 from PAYTM.",
			amount:      "2000.00",
			direction:   domain.DirectionCredit,
			counterpart: "PAYTM",
			signal:      "Paytm",
		},
		{
			name:        "thousands separators",
			text:        "INR 1,25,000.50 debited towards Amazon order",
			amount:      "125000.50",
			direction:   domain.DirectionDebit,
			counterpart: "Amazon",
			signal:      "Amazon",
		},
		{
			name:        "rupee sign without fraction",
			text:        "₹499 paid to Netflix",
			amount:      "499",
			direction:   domain.DirectionDebit,
			counterpart: "Netflix",
			signal:      "Netflix",
		},
		{
			name:        "first vendor in list wins",
			text:        "Rs 300 debited for Zomato order via Paytm",
			amount:      "300",
			direction:   domain.DirectionDebit,
			counterpart: "Zomato",
			signal:      "Zomato",
		},
		{
			name:        "phrase fallback ends at period",
			text:        "Rs 500 debited from A/c XX12 for Ramesh Kumar. Ref 4411",
			amount:      "500",
			direction:   domain.DirectionDebit,
			counterpart: "Ramesh Kumar",
		},
		{
			name:        "phrase fallback ends at UPI marker",
			text:        "Rs 75 sent to Corner Tea Stall UPI Ref 99812",
			amount:      "75",
			direction:   domain.DirectionDebit,
			counterpart: "Corner Tea Stall",
		},
		{
			name:        "phrase fallback at end of text",
			text:        "Rs 20 transferred to Anita",
			amount:      "20",
			direction:   domain.DirectionDebit,
			counterpart: "Anita",
		},
		{
			name:        "nothing recognisable",
			text:        "Your OTP is 123456",
			amount:      "0",
			direction:   domain.DirectionDebit,
			counterpart: domain.UnknownCounterpart,
		},
		{
			name:        "empty text",
			text:        "",
			amount:      "0",
			direction:   domain.DirectionDebit,
			counterpart: domain.UnknownCounterpart,
		},
	}

	ex := NewExtractor()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ex.Extract(tt.text)
			assert.True(t, decimal.RequireFromString(tt.amount).Equal(got.Amount),
				"amount: want %s, got %s", tt.amount, got.Amount)
			assert.Equal(t, tt.direction, got.Direction)
			assert.Equal(t, tt.counterpart, got.Counterpart)
			assert.Equal(t, tt.signal, got.CategorySignal)
		})
	}
}

func TestExtract_NoCurrencyMeansZeroAmount(t *testing.T) {
	ex := NewExtractor()
	for _, text := range []string{
		"debited 150 for Swiggy",
		"Rs. only",
		"Balance low, please recharge",
		"150.00 credited",
	} {
		got := ex.Extract(text)
		assert.True(t, got.Amount.IsZero(), "text %q gave amount %s", text, got.Amount)
	}
}

func TestExtract_CreditedInAnyCase(t *testing.T) {
	ex := NewExtractor()
	for _, text := range []string{
		"credited Rs 10",
		"Amount CREDITED to your account",
		"Your a/c was Credited with Rs 5",
		"Rs 100 debited from A/c 1 and credited to A/c 2",
	} {
		assert.Equal(t, domain.DirectionCredit, ex.Extract(text).Direction, text)
	}
	assert.Equal(t, domain.DirectionDebit, ex.Extract("Rs 10 spent at store").Direction)
}

func TestNewExtractor_CustomVendors(t *testing.T) {
	ex := NewExtractor("Cafe Coffee Day", " ", "Swiggy")
	assert.Equal(t, []string{"Cafe Coffee Day", "Swiggy"}, ex.Vendors())

	got := ex.Extract("Rs 220 debited at CAFE COFFEE DAY via Swiggy")
	assert.Equal(t, "CAFE COFFEE DAY", got.Counterpart)
	assert.Equal(t, "Cafe Coffee Day", got.CategorySignal)

	// Vendors outside the custom list fall through to the phrase rule.
	assert.Equal(t, "Zomato", ex.Extract("Rs 90 paid to Zomato.").Counterpart)
}
