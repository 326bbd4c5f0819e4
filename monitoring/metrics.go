package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_reservations_total",
			Help: "Reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	paymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_payment_webhooks_total",
			Help: "Payment webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	checkInsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "boxoffice_check_ins_total",
			Help: "Check-in scans by result",
		},
		[]string{"result"},
	)

	expiredReservationsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "boxoffice_expired_reservations_swept_total",
			Help: "Reservations lapsed by the expiry sweeper",
		},
	)
)

func ReservationCreated()  { reservationsTotal.WithLabelValues("created").Inc() }
func ReservationRejected() { reservationsTotal.WithLabelValues("rejected").Inc() }

func PaymentProcessed() { paymentsTotal.WithLabelValues("processed").Inc() }
func PaymentDuplicate() { paymentsTotal.WithLabelValues("duplicate").Inc() }
func PaymentRejected()  { paymentsTotal.WithLabelValues("rejected").Inc() }

func CheckInRecorded(result string) { checkInsTotal.WithLabelValues(result).Inc() }

func ReservationsSwept(n int) { expiredReservationsSwept.Add(float64(n)) }
