package command

import (
	"context"
	"errors"

	"boxoffice/entities"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
)

// RevokeTicket handles the fraud collaborator's revocation. Revoking a
// ticket that already reached a terminal status is a no-op: the earlier
// transition wins and check-in treats both the same way.
func (h *Handler) RevokeTicket(ctx context.Context, cmd *entities.RevokeTicket) error {
	err := h.ticketRepo.Revoke(ctx, cmd.TicketID, cmd.Reason)
	if errors.Is(err, entities.ErrTicketNotActive) {
		log.FromContext(ctx).
			WithField("ticket_id", cmd.TicketID).
			Info("Ticket already in a terminal status, revoke is a no-op")
		return nil
	}
	return err
}

func (h *Handler) RefundTicket(ctx context.Context, cmd *entities.RefundTicket) error {
	err := h.ticketRepo.Refund(ctx, cmd.TicketID)
	if errors.Is(err, entities.ErrTicketNotActive) {
		log.FromContext(ctx).
			WithField("ticket_id", cmd.TicketID).
			Info("Ticket already in a terminal status, refund is a no-op")
		return nil
	}
	return err
}
