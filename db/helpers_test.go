package db

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"boxoffice/entities"
	"boxoffice/message/outbox"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testDb *DB
var getDbOnce sync.Once

func getDb(t *testing.T) *DB {
	t.Helper()
	if os.Getenv("POSTGRES_URL") == "" {
		t.Skip("POSTGRES_URL not set")
	}
	getDbOnce.Do(func() {
		conn, err := sqlx.Open("postgres", os.Getenv("POSTGRES_URL"))
		if err != nil {
			panic(err)
		}
		testDb = &DB{Conn: conn}
		testDb.MigrateSchema()

		// creates the watermill outbox tables the repositories publish into
		outbox.SubscribeForPGMessages(conn, watermill.NopLogger{})
	})
	return testDb
}

func newLedger(t *testing.T, db *DB, capacity int, mode entities.QRMode) (uuid.UUID, uuid.UUID) {
	t.Helper()
	eventID := uuid.New()
	ticketTypeID := uuid.New()
	err := NewInventoryRepository(db).CreateLedger(context.Background(), entities.InventoryLedger{
		EventID:       eventID,
		TicketTypeID:  ticketTypeID,
		TotalCapacity: capacity,
	}, mode)
	require.NoError(t, err)
	return eventID, ticketTypeID
}

func newReservation(t *testing.T, db *DB, eventID, ticketTypeID uuid.UUID, quantity int, ttl time.Duration) entities.Reservation {
	t.Helper()
	reservation := entities.Reservation{
		ReservationID: uuid.New(),
		EventID:       eventID,
		TicketTypeID:  ticketTypeID,
		UserID:        uuid.New(),
		Quantity:      quantity,
	}
	_, err := NewReservationRepository(db).Create(context.Background(), reservation, ttl)
	require.NoError(t, err)
	return reservation
}

// issueTicket walks the full happy path so check-in tests operate on tickets
// created exactly the way production creates them.
func issueTicket(t *testing.T, db *DB, mode entities.QRMode) entities.Ticket {
	t.Helper()
	eventID, ticketTypeID := newLedger(t, db, 1, mode)
	reservation := newReservation(t, db, eventID, ticketTypeID, 1, time.Minute)

	result, err := NewCheckoutRepository(db, decimal.NewFromInt(10)).ApplyPayment(context.Background(), entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     uuid.NewString(),
		AmountCents:    4999,
		Currency:       "USD",
	})
	require.NoError(t, err)
	require.False(t, result.AlreadyProcessed)

	ticket, err := NewTicketRepository(db).GetByID(context.Background(), result.TicketID)
	require.NoError(t, err)
	return ticket
}
