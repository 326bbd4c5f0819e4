package command

import (
	"context"

	"github.com/google/uuid"
)

type TicketRepository interface {
	Revoke(ctx context.Context, ticketID uuid.UUID, reason string) error
	Refund(ctx context.Context, ticketID uuid.UUID) error
}

type Handler struct {
	ticketRepo TicketRepository
}

func NewHandler(ticketRepo TicketRepository) Handler {
	if ticketRepo == nil {
		panic("ticketRepo is required")
	}

	return Handler{
		ticketRepo: ticketRepo,
	}
}
