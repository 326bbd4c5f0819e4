package event

import (
	"context"

	"boxoffice/entities"
)

// Data lake handlers: every event this service publishes is also archived in
// the events table, deduplicated by event id.

func (h Handler) ArchiveTicketIssued(ctx context.Context, event *entities.TicketIssued_v1) error {
	return h.dataLakeRepo.Append(ctx, "TicketIssued_v1", event.Header, event)
}

func (h Handler) ArchiveReservationExpired(ctx context.Context, event *entities.ReservationExpired_v1) error {
	return h.dataLakeRepo.Append(ctx, "ReservationExpired_v1", event.Header, event)
}

func (h Handler) ArchiveCheckInRecorded(ctx context.Context, event *entities.CheckInRecorded_v1) error {
	return h.dataLakeRepo.Append(ctx, "CheckInRecorded_v1", event.Header, event)
}

func (h Handler) ArchiveTicketRevoked(ctx context.Context, event *entities.TicketRevoked_v1) error {
	return h.dataLakeRepo.Append(ctx, "TicketRevoked_v1", event.Header, event)
}

func (h Handler) ArchiveTicketRefunded(ctx context.Context, event *entities.TicketRefunded_v1) error {
	return h.dataLakeRepo.Append(ctx, "TicketRefunded_v1", event.Header, event)
}

func (h Handler) ArchivePaymentReceived(ctx context.Context, event *entities.PaymentReceived_v1) error {
	return h.dataLakeRepo.Append(ctx, "PaymentReceived_v1", event.Header, event)
}
