package event

import (
	"context"
	"errors"

	"boxoffice/entities"
	"boxoffice/monitoring"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// ApplyPayment consumes payment notifications from the payment collaborator.
// Redeliveries of the same payment event id resolve to a no-op inside the
// checkout transaction; terminal rejections (expired or unknown reservation)
// are recorded in the webhook ledger and must not be retried by the router.
func (h Handler) ApplyPayment(ctx context.Context, event *entities.PaymentReceived_v1) error {
	result, err := h.checkoutRepo.ApplyPayment(ctx, *event)
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrReservationExpired),
		errors.Is(err, entities.ErrReservationNotFound),
		errors.Is(err, entities.ErrPaymentMismatch),
		errors.Is(err, entities.ErrPaymentProcessed):
		log.FromContext(ctx).
			WithField("payment_event_id", event.PaymentEventID).
			WithField("reservation_id", event.ReservationID).
			WithError(err).
			Warn("Payment rejected")
		monitoring.PaymentRejected()
		return nil
	default:
		return err
	}

	if result.AlreadyProcessed {
		log.FromContext(ctx).
			WithField("payment_event_id", event.PaymentEventID).
			Info("Duplicate payment delivery, no-op")
		monitoring.PaymentDuplicate()
		return nil
	}

	log.FromContext(ctx).
		WithField("payment_event_id", event.PaymentEventID).
		WithField("ticket_id", result.TicketID).
		Info("Payment applied, ticket issued")
	monitoring.PaymentProcessed()
	return nil
}
