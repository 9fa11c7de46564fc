package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction tells whether money left or entered the owner's account.
type Direction string

const (
	DirectionDebit  Direction = "Debit"
	DirectionCredit Direction = "Credit"
)

const (
	// UnknownCounterpart is stored when no vendor or "for/to" phrase matched.
	UnknownCounterpart = "Unknown"

	// CategoryUncategorized is the fallback label of the transaction classifier.
	CategoryUncategorized = "Uncategorized"
)

// TransactionRecord is one bank notification turned into a ledger entry.
// ID and RecordedAt are assigned by the ledger on append.
type TransactionRecord struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"owner_id"`
	RawText     string          `json:"raw_text"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	Counterpart string          `json:"counterpart"`
	Category    string          `json:"category"`
	RecordedAt  time.Time       `json:"recorded_at"`
}

// PlanRecord is one planning submission together with whatever the model
// made of it. Schedule holds either entries or an ErrorPayload, never neither.
type PlanRecord struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	RawInput   string    `json:"raw_input"`
	Schedule   Schedule  `json:"parsed_schedule"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ChatMessage is a single turn of a chat conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat roles understood by the conversation backends.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)
