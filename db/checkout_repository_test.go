package db

import (
	"context"
	"testing"
	"time"

	"boxoffice/entities"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyPaymentIsIdempotent(t *testing.T) {
	db := getDb(t)
	repo := NewCheckoutRepository(db, decimal.NewFromInt(10))
	inventoryRepo := NewInventoryRepository(db)
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 1, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 1, time.Minute)

	payment := entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     uuid.NewString(),
		AmountCents:    10000,
		Currency:       "USD",
	}

	first, err := repo.ApplyPayment(ctx, payment)
	require.NoError(t, err)
	assert.False(t, first.AlreadyProcessed)
	assert.NotEqual(t, uuid.Nil, first.TicketID)

	for i := 0; i < 3; i++ {
		redelivered, err := repo.ApplyPayment(ctx, payment)
		require.NoError(t, err)
		assert.True(t, redelivered.AlreadyProcessed)
		assert.Equal(t, first.TicketID, redelivered.TicketID)
	}

	var ticketCount int
	err = db.Conn.GetContext(ctx, &ticketCount,
		`SELECT count(*) FROM tickets WHERE reservation_id = $1`, reservation.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, 1, ticketCount)

	ledger, err := inventoryRepo.Get(ctx, eventID, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.SoldCount)
	assert.Equal(t, 0, ledger.ReservedCount)
}

func TestApplyPaymentSamePaymentRefNewEventID(t *testing.T) {
	db := getDb(t)
	repo := NewCheckoutRepository(db, decimal.NewFromInt(10))
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 1, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 1, time.Minute)

	paymentRef := uuid.NewString()
	first, err := repo.ApplyPayment(ctx, entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     paymentRef,
		AmountCents:    5000,
		Currency:       "USD",
	})
	require.NoError(t, err)

	// the payment provider may re-deliver under a fresh event id; the
	// consumed reservation plus the payment ref still resolve it
	second, err := repo.ApplyPayment(ctx, entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     paymentRef,
		AmountCents:    5000,
		Currency:       "USD",
	})
	require.NoError(t, err)
	assert.True(t, second.AlreadyProcessed)
	assert.Equal(t, first.TicketID, second.TicketID)
}

func TestApplyPaymentMismatchedRef(t *testing.T) {
	db := getDb(t)
	repo := NewCheckoutRepository(db, decimal.NewFromInt(10))
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 1, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 1, time.Minute)

	_, err := repo.ApplyPayment(ctx, entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     uuid.NewString(),
		AmountCents:    5000,
		Currency:       "USD",
	})
	require.NoError(t, err)

	_, err = repo.ApplyPayment(ctx, entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     uuid.NewString(),
		AmountCents:    5000,
		Currency:       "USD",
	})
	assert.ErrorIs(t, err, entities.ErrPaymentMismatch)
}

func TestApplyPaymentExpiredReservation(t *testing.T) {
	db := getDb(t)
	repo := NewCheckoutRepository(db, decimal.NewFromInt(10))
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 1, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 1, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	payment := entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  reservation.ReservationID,
		PaymentRef:     uuid.NewString(),
		AmountCents:    5000,
		Currency:       "USD",
	}

	_, err := repo.ApplyPayment(ctx, payment)
	assert.ErrorIs(t, err, entities.ErrReservationExpired)

	// the rejection is recorded; the redelivery replays it without work
	result, err := repo.ApplyPayment(ctx, payment)
	require.NoError(t, err)
	assert.True(t, result.AlreadyProcessed)
	assert.Equal(t, uuid.Nil, result.TicketID)
}

func TestApplyPaymentUnknownReservation(t *testing.T) {
	db := getDb(t)
	repo := NewCheckoutRepository(db, decimal.NewFromInt(10))

	_, err := repo.ApplyPayment(context.Background(), entities.PaymentReceived_v1{
		Header:         entities.NewEventHeader(),
		PaymentEventID: uuid.NewString(),
		ReservationID:  uuid.New(),
		PaymentRef:     uuid.NewString(),
		AmountCents:    5000,
		Currency:       "USD",
	})
	assert.ErrorIs(t, err, entities.ErrReservationNotFound)
}

func TestApplyPaymentReconcilesPaymentRow(t *testing.T) {
	db := getDb(t)
	ctx := context.Background()

	ticket := issueTicket(t, db, entities.QRModeSingleUse)

	var payment entities.Payment
	err := db.Conn.GetContext(ctx, &payment, `
		SELECT payment_id, ticket_id, payment_ref, amount, platform_fee, organizer_payout, currency
		FROM payments WHERE ticket_id = $1`, ticket.TicketID)
	require.NoError(t, err)

	assert.True(t, payment.Amount.Equal(payment.PlatformFee.Add(payment.OrganizerPayout)),
		"amount must equal platform fee plus organizer payout")
	assert.True(t, payment.Amount.Equal(decimal.New(4999, -2)))
}
