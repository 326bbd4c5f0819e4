package http

import (
	"net/http"

	"boxoffice/db"
	"boxoffice/monitoring"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// PostCheckIns always answers 200 with a decision payload. A rejected scan is
// a normal outcome the gate device renders, not a transport failure.
func (h *Handler) PostCheckIns(c echo.Context) error {
	var request db.CheckInRequest
	err := c.Bind(&request)
	if err != nil {
		return err
	}

	if request.ScannerID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "scanner_id is required")
	}
	if request.Token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token is required")
	}

	decision, err := h.checkinRepo.CheckIn(c.Request().Context(), request)
	if err != nil {
		return err
	}

	monitoring.CheckInRecorded(string(decision.Result))
	return c.JSON(http.StatusOK, decision)
}

func (h *Handler) GetCheckIns(c echo.Context) error {
	ticketID, err := uuid.Parse(c.QueryParam("ticket_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "ticket_id query parameter is required")
	}

	entries, err := h.checkinRepo.ListByTicket(c.Request().Context(), ticketID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}
