package entities

import "github.com/google/uuid"

// InventoryLedger tracks capacity for one (event, ticket type) pair.
// available is derived, never stored: total - sold - reserved.
type InventoryLedger struct {
	EventID       uuid.UUID `json:"event_id" db:"event_id"`
	TicketTypeID  uuid.UUID `json:"ticket_type_id" db:"ticket_type_id"`
	TotalCapacity int       `json:"total_capacity" db:"total_capacity"`
	SoldCount     int       `json:"sold_count" db:"sold_count"`
	ReservedCount int       `json:"reserved_count" db:"reserved_count"`
}

func (l InventoryLedger) Available() int {
	return l.TotalCapacity - l.SoldCount - l.ReservedCount
}

type AvailabilityResponse struct {
	EventID       uuid.UUID `json:"event_id"`
	TicketTypeID  uuid.UUID `json:"ticket_type_id"`
	TotalCapacity int       `json:"total_capacity"`
	Available     int       `json:"available"`
}
