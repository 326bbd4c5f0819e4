package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketActive      TicketStatus = "active"
	TicketUsed        TicketStatus = "used"
	TicketRefunded    TicketStatus = "refunded"
	TicketTransferred TicketStatus = "transferred"
	TicketRevoked     TicketStatus = "revoked"
	TicketExpired     TicketStatus = "expired"
)

type QRMode string

const (
	QRModeSingleUse QRMode = "A"
	QRModeRotating  QRMode = "B"
)

// Ticket is created exactly once from a consumed reservation. QRSecret is the
// per-ticket signing key and never leaves the server; QRRotationNonce is only
// meaningful for rotating-mode tickets. active -> used is the only transition
// the check-in path may perform.
type Ticket struct {
	TicketID        uuid.UUID       `json:"ticket_id" db:"ticket_id"`
	EventID         uuid.UUID       `json:"event_id" db:"event_id"`
	TicketTypeID    uuid.UUID       `json:"ticket_type_id" db:"ticket_type_id"`
	BuyerID         uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	ReservationID   uuid.UUID       `json:"reservation_id" db:"reservation_id"`
	QRSecret        []byte          `json:"-" db:"qr_secret"`
	QRMode          QRMode          `json:"qr_mode" db:"qr_mode"`
	QRRotationNonce int64           `json:"-" db:"qr_rotation_nonce"`
	Status          TicketStatus    `json:"status" db:"status"`
	PurchasePrice   decimal.Decimal `json:"purchase_price" db:"purchase_price"`
	Currency        string          `json:"currency" db:"currency"`
	PaymentRef      string          `json:"payment_ref" db:"payment_ref"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
}

type TokenResponse struct {
	TicketID uuid.UUID `json:"ticket_id"`
	Token    string    `json:"token"`
}
