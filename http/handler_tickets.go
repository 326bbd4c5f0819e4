package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"boxoffice/entities"
	"boxoffice/qrtoken"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PostTicketToken issues a fresh QR token for the ticket's mode. Single-use
// tickets get a new random nonce every call; rotating tickets get the token
// for the current time window and the stored rotation counter.
func (h *Handler) PostTicketToken(c echo.Context) error {
	ticketID, err := uuid.Parse(c.Param("ticket_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	ticket, err := h.ticketRepo.GetByID(c.Request().Context(), ticketID)
	if errors.Is(err, entities.ErrTicketNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "ticket not found")
	}
	if err != nil {
		return err
	}

	if ticket.Status != entities.TicketActive {
		return echo.NewHTTPError(http.StatusConflict, fmt.Sprintf("ticket is %s", ticket.Status))
	}

	var token string
	switch ticket.QRMode {
	case entities.QRModeSingleUse:
		token, err = qrtoken.GenerateSingleUse(ticket.QRSecret, ticket.TicketID, time.Now())
		if err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
	case entities.QRModeRotating:
		token = qrtoken.GenerateRotating(ticket.QRSecret, ticket.TicketID, ticket.QRRotationNonce, time.Now(), qrtoken.DefaultRotationInterval)
	default:
		return fmt.Errorf("ticket %s has unknown qr mode %q", ticket.TicketID, ticket.QRMode)
	}

	return c.JSON(http.StatusOK, entities.TokenResponse{
		TicketID: ticket.TicketID,
		Token:    token,
	})
}

type revokeRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) PutTicketRevoke(c echo.Context) error {
	ticketID, err := uuid.Parse(c.Param("ticket_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	var request revokeRequest
	if err := c.Bind(&request); err != nil {
		return err
	}

	cmd := entities.RevokeTicket{
		Header:   entities.NewEventHeaderWithIdempotencyKey(ticketID.String()),
		TicketID: ticketID,
		Reason:   request.Reason,
	}
	if err := h.cmdBus.Send(c.Request().Context(), cmd); err != nil {
		return fmt.Errorf("failed to send revoke ticket command: %w", err)
	}
	return c.NoContent(http.StatusAccepted)
}

func (h *Handler) PutTicketRefund(c echo.Context) error {
	ticketID, err := uuid.Parse(c.Param("ticket_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket id")
	}

	cmd := entities.RefundTicket{
		Header:   entities.NewEventHeaderWithIdempotencyKey(ticketID.String()),
		TicketID: ticketID,
	}
	if err := h.cmdBus.Send(c.Request().Context(), cmd); err != nil {
		return fmt.Errorf("failed to send refund ticket command: %w", err)
	}
	return c.NoContent(http.StatusAccepted)
}
