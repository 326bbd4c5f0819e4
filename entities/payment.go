package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is the money record created alongside a ticket. The split must
// reconcile exactly: Amount = PlatformFee + OrganizerPayout.
type Payment struct {
	PaymentID       uuid.UUID       `json:"payment_id" db:"payment_id"`
	TicketID        uuid.UUID       `json:"ticket_id" db:"ticket_id"`
	PaymentRef      string          `json:"payment_ref" db:"payment_ref"`
	Amount          decimal.Decimal `json:"amount" db:"amount"`
	PlatformFee     decimal.Decimal `json:"platform_fee" db:"platform_fee"`
	OrganizerPayout decimal.Decimal `json:"organizer_payout" db:"organizer_payout"`
	Currency        string          `json:"currency" db:"currency"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

// SplitPayment divides a gross amount into the platform fee and the organizer
// payout. The payout is computed as the remainder so the two legs always sum
// back to the gross amount regardless of rounding.
func SplitPayment(amount decimal.Decimal, feePercent decimal.Decimal) (fee, payout decimal.Decimal) {
	fee = amount.Mul(feePercent).Div(decimal.NewFromInt(100)).Round(2)
	payout = amount.Sub(fee)
	return fee, payout
}

// CheckoutResult reports what applying a payment did. AlreadyProcessed marks
// the idempotent no-op path for redelivered payment events.
type CheckoutResult struct {
	TicketID         uuid.UUID `json:"ticket_id"`
	AlreadyProcessed bool      `json:"already_processed"`
}

type WebhookResult string

const (
	// WebhookResultReceived is the in-transaction placeholder; a committed
	// row always carries one of the terminal results below.
	WebhookResultReceived     WebhookResult = "received"
	WebhookResultTicketIssued WebhookResult = "ticket_issued"
	WebhookResultRejected     WebhookResult = "rejected"
)

// WebhookRecord is one row of the append-only webhook ledger. The existence of
// a row for a payment event id is the first idempotency gate for checkout.
type WebhookRecord struct {
	PaymentEventID string        `json:"payment_event_id" db:"payment_event_id"`
	ReservationID  uuid.UUID     `json:"reservation_id" db:"reservation_id"`
	Result         WebhookResult `json:"result" db:"result"`
	TicketID       *uuid.UUID    `json:"ticket_id,omitempty" db:"ticket_id"`
	ProcessedAt    time.Time     `json:"processed_at" db:"processed_at"`
}
