package entities

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationConsumed  ReservationStatus = "consumed"
	ReservationExpired   ReservationStatus = "expired"
	ReservationCancelled ReservationStatus = "cancelled"
)

// Reservation is a time-bounded hold against inventory. It reaches exactly
// one terminal status; only pending -> consumed may produce a ticket.
type Reservation struct {
	ReservationID uuid.UUID         `json:"reservation_id" db:"reservation_id"`
	EventID       uuid.UUID         `json:"event_id" db:"event_id"`
	TicketTypeID  uuid.UUID         `json:"ticket_type_id" db:"ticket_type_id"`
	UserID        uuid.UUID         `json:"user_id" db:"user_id"`
	Quantity      int               `json:"quantity" db:"quantity"`
	Status        ReservationStatus `json:"status" db:"status"`
	CreatedAt     time.Time         `json:"created_at" db:"created_at"`
	ExpiresAt     time.Time         `json:"expires_at" db:"expires_at"`
}

type ReservationCreateResponse struct {
	ReservationID uuid.UUID `json:"reservation_id"`
	ExpiresAt     time.Time `json:"expires_at"`
}
