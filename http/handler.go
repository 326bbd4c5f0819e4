package http

import (
	"context"
	"time"

	"boxoffice/db"
	"boxoffice/entities"

	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/google/uuid"
)

type Handler struct {
	eventBus        *cqrs.EventBus
	cmdBus          *cqrs.CommandBus
	inventoryRepo   InventoryRepository
	reservationRepo ReservationRepository
	ticketRepo      TicketRepository
	checkinRepo     CheckinRepository
	reservationTTL  time.Duration
}

type InventoryRepository interface {
	CreateLedger(ctx context.Context, ledger entities.InventoryLedger, mode entities.QRMode) error
	Get(ctx context.Context, eventID, ticketTypeID uuid.UUID) (entities.InventoryLedger, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]entities.InventoryLedger, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, reservation entities.Reservation, ttl time.Duration) (entities.ReservationCreateResponse, error)
	Cancel(ctx context.Context, reservationID uuid.UUID) error
}

type TicketRepository interface {
	GetByID(ctx context.Context, ticketID uuid.UUID) (entities.Ticket, error)
}

type CheckinRepository interface {
	CheckIn(ctx context.Context, req db.CheckInRequest) (entities.CheckInDecision, error)
	ListByTicket(ctx context.Context, ticketID uuid.UUID) ([]entities.CheckInLogEntry, error)
}
