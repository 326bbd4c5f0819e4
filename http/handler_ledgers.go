package http

import (
	"errors"
	"net/http"

	"boxoffice/entities"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type ledgerRequest struct {
	EventID       uuid.UUID       `json:"event_id"`
	TicketTypeID  uuid.UUID       `json:"ticket_type_id"`
	TotalCapacity int             `json:"total_capacity"`
	QRMode        entities.QRMode `json:"qr_mode"`
}

func (h *Handler) PostLedgers(c echo.Context) error {
	var request ledgerRequest
	err := c.Bind(&request)
	if err != nil {
		return err
	}

	if request.TotalCapacity < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "total_capacity must not be negative")
	}
	switch request.QRMode {
	case "":
		request.QRMode = entities.QRModeSingleUse
	case entities.QRModeSingleUse, entities.QRModeRotating:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "qr_mode must be A or B")
	}

	err = h.inventoryRepo.CreateLedger(c.Request().Context(), entities.InventoryLedger{
		EventID:       request.EventID,
		TicketTypeID:  request.TicketTypeID,
		TotalCapacity: request.TotalCapacity,
	}, request.QRMode)
	if err != nil {
		return err
	}

	return c.NoContent(http.StatusCreated)
}

func (h *Handler) GetAvailability(c echo.Context) error {
	eventID, err := uuid.Parse(c.Param("event_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid event id")
	}

	if raw := c.QueryParam("ticket_type_id"); raw != "" {
		ticketTypeID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid ticket_type_id")
		}

		ledger, err := h.inventoryRepo.Get(c.Request().Context(), eventID, ticketTypeID)
		if errors.Is(err, entities.ErrLedgerNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "no inventory for this event and ticket type")
		}
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, availabilityOf(ledger))
	}

	ledgers, err := h.inventoryRepo.ListByEvent(c.Request().Context(), eventID)
	if err != nil {
		return err
	}

	response := make([]entities.AvailabilityResponse, 0, len(ledgers))
	for _, ledger := range ledgers {
		response = append(response, availabilityOf(ledger))
	}
	return c.JSON(http.StatusOK, response)
}

func availabilityOf(ledger entities.InventoryLedger) entities.AvailabilityResponse {
	return entities.AvailabilityResponse{
		EventID:       ledger.EventID,
		TicketTypeID:  ledger.TicketTypeID,
		TotalCapacity: ledger.TotalCapacity,
		Available:     ledger.Available(),
	}
}
