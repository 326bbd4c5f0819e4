package entities

import "github.com/google/uuid"

// RevokeTicket is issued by the fraud collaborator. Revocation only applies
// to active tickets; any terminal status wins over the command.
type RevokeTicket struct {
	Header EventHeader `json:"header"`

	TicketID uuid.UUID `json:"ticket_id"`
	Reason   string    `json:"reason"`
}

type RefundTicket struct {
	Header EventHeader `json:"header"`

	TicketID uuid.UUID `json:"ticket_id"`
}
