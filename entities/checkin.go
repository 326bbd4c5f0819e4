package entities

import (
	"time"

	"github.com/google/uuid"
)

type CheckInResult string

const (
	CheckInValid       CheckInResult = "valid"
	CheckInInvalid     CheckInResult = "invalid"
	CheckInAlreadyUsed CheckInResult = "already_used"
	CheckInExpired     CheckInResult = "expired"
	CheckInRevoked     CheckInResult = "revoked"
)

// CheckInLogEntry is one row of the append-only scan log. Every scan attempt
// is recorded, successes and rejections alike.
type CheckInLogEntry struct {
	EntryID   int64         `json:"entry_id" db:"entry_id"`
	TicketID  uuid.UUID     `json:"ticket_id" db:"ticket_id"`
	ScannerID string        `json:"scanner_id" db:"scanner_id"`
	DeviceID  string        `json:"device_id" db:"device_id"`
	Result    CheckInResult `json:"result" db:"result"`
	Reason    string        `json:"reason" db:"reason"`
	CreatedAt time.Time     `json:"created_at" db:"created_at"`
}

// CheckInDecision is what the scanner app receives. On an already_used
// conflict it carries the winning scan so staff can resolve dual-device
// sync lag versus fraud.
type CheckInDecision struct {
	TicketID    uuid.UUID        `json:"ticket_id"`
	Result      CheckInResult    `json:"result"`
	Reason      string           `json:"reason,omitempty"`
	WinningScan *CheckInLogEntry `json:"winning_scan,omitempty"`
}

// UsedNonce marks a single-use token instance as redeemed. Append-only;
// presence of the pair means that exact token was already presented.
type UsedNonce struct {
	TicketID   uuid.UUID `json:"ticket_id" db:"ticket_id"`
	Nonce      int64     `json:"nonce" db:"nonce"`
	RedeemedAt time.Time `json:"redeemed_at" db:"redeemed_at"`
}
