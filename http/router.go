package http

import (
	"net/http"
	"time"

	libHttp "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/watermill/components/cqrs"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

func NewHttpRouter(
	eventBus *cqrs.EventBus,
	cmdBus *cqrs.CommandBus,
	inventoryRepo InventoryRepository,
	reservationRepo ReservationRepository,
	ticketRepo TicketRepository,
	checkinRepo CheckinRepository,
	reservationTTL time.Duration,
) *echo.Echo {
	e := libHttp.NewEcho()
	e.Use(otelecho.Middleware("boxoffice"))

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	handler := Handler{
		eventBus:        eventBus,
		cmdBus:          cmdBus,
		inventoryRepo:   inventoryRepo,
		reservationRepo: reservationRepo,
		ticketRepo:      ticketRepo,
		checkinRepo:     checkinRepo,
		reservationTTL:  reservationTTL,
	}

	e.POST("/ledgers", handler.PostLedgers)
	e.GET("/events/:event_id/availability", handler.GetAvailability)
	e.POST("/reservations", handler.PostReservations)
	e.DELETE("/reservations/:reservation_id", handler.DeleteReservation)
	e.POST("/payments/webhook", handler.PostPaymentsWebhook)
	e.POST("/tickets/:ticket_id/token", handler.PostTicketToken)
	e.PUT("/tickets/:ticket_id/revoke", handler.PutTicketRevoke)
	e.PUT("/tickets/:ticket_id/refund", handler.PutTicketRefund)
	e.POST("/check-ins", handler.PostCheckIns)
	e.GET("/check-ins", handler.GetCheckIns)

	return e
}
