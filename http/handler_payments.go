package http

import (
	"fmt"
	"net/http"

	"boxoffice/entities"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type paymentWebhookRequest struct {
	PaymentEventID string    `json:"payment_event_id"`
	ReservationID  uuid.UUID `json:"reservation_id"`
	PaymentRef     string    `json:"payment_ref"`
	AmountCents    int64     `json:"amount_cents"`
	Currency       string    `json:"currency"`
}

// PostPaymentsWebhook accepts the payment collaborator's callback and puts it
// on the stream. Processing is asynchronous; the collaborator only needs an
// ack, and redeliveries are deduplicated downstream by payment_event_id.
func (h *Handler) PostPaymentsWebhook(c echo.Context) error {
	var request paymentWebhookRequest
	err := c.Bind(&request)
	if err != nil {
		return err
	}

	if request.PaymentEventID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_event_id is required")
	}
	if request.PaymentRef == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "payment_ref is required")
	}
	if request.AmountCents <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "amount_cents must be positive")
	}

	event := entities.PaymentReceived_v1{
		Header: entities.NewEventHeaderWithIdempotencyKey(request.PaymentEventID),

		PaymentEventID: request.PaymentEventID,
		ReservationID:  request.ReservationID,
		PaymentRef:     request.PaymentRef,
		AmountCents:    request.AmountCents,
		Currency:       request.Currency,
	}

	if err := h.eventBus.Publish(c.Request().Context(), event); err != nil {
		return fmt.Errorf("failed to publish PaymentReceived_v1 event: %w", err)
	}

	return c.NoContent(http.StatusAccepted)
}
