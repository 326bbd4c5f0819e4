package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventHeader struct {
	ID             string    `json:"id"`
	PublishedAt    time.Time `json:"published_at"`
	IdempotencyKey string    `json:"idempotency_key"`
}

func NewEventHeader() EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: uuid.NewString(),
	}
}

func NewEventHeaderWithIdempotencyKey(idempotencyKey string) EventHeader {
	return EventHeader{
		ID:             uuid.NewString(),
		PublishedAt:    time.Now().UTC(),
		IdempotencyKey: idempotencyKey,
	}
}

type IEvent interface {
	IsInternal() bool
}

// PaymentReceived_v1 is what the payment collaborator delivers. The same
// PaymentEventID may arrive arbitrarily many times.
type PaymentReceived_v1 struct {
	Header EventHeader `json:"header"`

	PaymentEventID string    `json:"payment_event_id"`
	ReservationID  uuid.UUID `json:"reservation_id"`
	PaymentRef     string    `json:"payment_ref"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
}

func (e PaymentReceived_v1) IsInternal() bool { return false }

type TicketIssued_v1 struct {
	Header EventHeader `json:"header"`

	TicketID      uuid.UUID       `json:"ticket_id"`
	EventID       uuid.UUID       `json:"event_id"`
	BuyerID       uuid.UUID       `json:"buyer_id"`
	ReservationID uuid.UUID       `json:"reservation_id"`
	PaymentRef    string          `json:"payment_ref"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Currency      string          `json:"currency"`
}

func (e TicketIssued_v1) IsInternal() bool { return false }

type ReservationExpired_v1 struct {
	Header EventHeader `json:"header"`

	ReservationID uuid.UUID `json:"reservation_id"`
	EventID       uuid.UUID `json:"event_id"`
	TicketTypeID  uuid.UUID `json:"ticket_type_id"`
	Quantity      int       `json:"quantity"`
}

func (e ReservationExpired_v1) IsInternal() bool { return false }

// CheckInRecorded_v1 mirrors every checkin_log row onto the stream consumed
// by the audit and fraud dashboards.
type CheckInRecorded_v1 struct {
	Header EventHeader `json:"header"`

	TicketID   uuid.UUID     `json:"ticket_id"`
	ScannerID  string        `json:"scanner_id"`
	DeviceID   string        `json:"device_id"`
	Result     CheckInResult `json:"result"`
	Reason     string        `json:"reason"`
	RecordedAt time.Time     `json:"recorded_at"`
}

func (e CheckInRecorded_v1) IsInternal() bool { return false }

type TicketRevoked_v1 struct {
	Header EventHeader `json:"header"`

	TicketID uuid.UUID `json:"ticket_id"`
	Reason   string    `json:"reason"`
}

func (e TicketRevoked_v1) IsInternal() bool { return false }

type TicketRefunded_v1 struct {
	Header EventHeader `json:"header"`

	TicketID uuid.UUID `json:"ticket_id"`
}

func (e TicketRefunded_v1) IsInternal() bool { return false }

// Event is the archive row stored in the data lake table for every event
// published by this service.
type Event struct {
	EventID     string      `json:"event_id" db:"event_id"`
	Header      EventHeader `json:"header"`
	EventName   string      `json:"event_name" db:"event_name"`
	PublishedAt time.Time   `json:"published_at" db:"published_at"`
}
