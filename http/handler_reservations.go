package http

import (
	"errors"
	"net/http"

	"boxoffice/entities"
	"boxoffice/monitoring"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type reservationRequest struct {
	EventID      uuid.UUID `json:"event_id"`
	TicketTypeID uuid.UUID `json:"ticket_type_id"`
	UserID       uuid.UUID `json:"user_id"`
	Quantity     int       `json:"quantity"`
}

func (h *Handler) PostReservations(c echo.Context) error {
	var request reservationRequest
	err := c.Bind(&request)
	if err != nil {
		return err
	}

	if request.Quantity < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "quantity must be greater than 0")
	}

	response, err := h.reservationRepo.Create(c.Request().Context(), entities.Reservation{
		ReservationID: uuid.New(),
		EventID:       request.EventID,
		TicketTypeID:  request.TicketTypeID,
		UserID:        request.UserID,
		Quantity:      request.Quantity,
	}, h.reservationTTL)
	if errors.Is(err, entities.ErrInsufficientCapacity) {
		monitoring.ReservationRejected()
		return echo.NewHTTPError(http.StatusConflict, "insufficient capacity")
	}
	if errors.Is(err, entities.ErrLedgerNotFound) {
		monitoring.ReservationRejected()
		return echo.NewHTTPError(http.StatusNotFound, "no inventory for this event and ticket type")
	}
	if err != nil {
		return err
	}

	monitoring.ReservationCreated()
	return c.JSON(http.StatusCreated, response)
}

func (h *Handler) DeleteReservation(c echo.Context) error {
	reservationID, err := uuid.Parse(c.Param("reservation_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid reservation id")
	}

	err = h.reservationRepo.Cancel(c.Request().Context(), reservationID)
	if errors.Is(err, entities.ErrReservationNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "reservation not found")
	}
	if errors.Is(err, entities.ErrAlreadyConsumed) {
		return echo.NewHTTPError(http.StatusConflict, "reservation already checked out")
	}
	if errors.Is(err, entities.ErrReservationExpired) {
		return echo.NewHTTPError(http.StatusConflict, "reservation already expired")
	}
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
