package db

import (
	"context"
	"testing"
	"time"

	"boxoffice/entities"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndCancelReservation(t *testing.T) {
	db := getDb(t)
	repo := NewReservationRepository(db)
	inventoryRepo := NewInventoryRepository(db)
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 4, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 3, time.Minute)

	stored, err := repo.GetByID(ctx, reservation.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entities.ReservationPending, stored.Status)

	ledger, err := inventoryRepo.Get(ctx, eventID, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.Available())

	err = repo.Cancel(ctx, reservation.ReservationID)
	require.NoError(t, err)

	ledger, err = inventoryRepo.Get(ctx, eventID, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.Available())

	// cancelling an already cancelled reservation is a no-op
	err = repo.Cancel(ctx, reservation.ReservationID)
	assert.NoError(t, err)

	ledger, err = inventoryRepo.Get(ctx, eventID, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 4, ledger.Available())
}

func TestCreateReservationOverCapacity(t *testing.T) {
	db := getDb(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 2, entities.QRModeSingleUse)

	_, err := repo.Create(ctx, entities.Reservation{
		ReservationID: uuid.New(),
		EventID:       eventID,
		TicketTypeID:  ticketTypeID,
		UserID:        uuid.New(),
		Quantity:      3,
	}, time.Minute)
	assert.ErrorIs(t, err, entities.ErrInsufficientCapacity)

	// the failed attempt must not leave a row behind
	_, err = repo.Create(ctx, entities.Reservation{
		ReservationID: uuid.New(),
		EventID:       eventID,
		TicketTypeID:  ticketTypeID,
		UserID:        uuid.New(),
		Quantity:      2,
	}, time.Minute)
	assert.NoError(t, err)
}

func TestConsumeReservationTwice(t *testing.T) {
	db := getDb(t)
	repo := NewReservationRepository(db)
	inventoryRepo := NewInventoryRepository(db)
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 2, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 2, time.Minute)

	consumed, err := repo.Consume(ctx, reservation.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, reservation.ReservationID, consumed.ReservationID)

	_, err = repo.Consume(ctx, reservation.ReservationID)
	assert.ErrorIs(t, err, entities.ErrAlreadyConsumed)

	ledger, err := inventoryRepo.Get(ctx, eventID, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 2, ledger.SoldCount)
	assert.Equal(t, 0, ledger.ReservedCount)
}

func TestConsumeExpiredReservation(t *testing.T) {
	db := getDb(t)
	repo := NewReservationRepository(db)
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 1, entities.QRModeSingleUse)
	reservation := newReservation(t, db, eventID, ticketTypeID, 1, 50*time.Millisecond)

	time.Sleep(100 * time.Millisecond)

	_, err := repo.Consume(ctx, reservation.ReservationID)
	assert.ErrorIs(t, err, entities.ErrReservationExpired)
}

func TestConsumeUnknownReservation(t *testing.T) {
	db := getDb(t)
	repo := NewReservationRepository(db)

	_, err := repo.Consume(context.Background(), uuid.New())
	assert.ErrorIs(t, err, entities.ErrReservationNotFound)
}

func TestSweepExpiredReservations(t *testing.T) {
	db := getDb(t)
	repo := NewReservationRepository(db)
	inventoryRepo := NewInventoryRepository(db)
	ctx := context.Background()

	eventID, ticketTypeID := newLedger(t, db, 3, entities.QRModeSingleUse)
	overdue := newReservation(t, db, eventID, ticketTypeID, 2, 50*time.Millisecond)
	alive := newReservation(t, db, eventID, ticketTypeID, 1, time.Minute)

	time.Sleep(100 * time.Millisecond)

	swept, err := repo.SweepExpired(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, swept, 1)

	stored, err := repo.GetByID(ctx, overdue.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entities.ReservationExpired, stored.Status)

	stored, err = repo.GetByID(ctx, alive.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, entities.ReservationPending, stored.Status)

	ledger, err := inventoryRepo.Get(ctx, eventID, ticketTypeID)
	require.NoError(t, err)
	assert.Equal(t, 1, ledger.ReservedCount)
	assert.Equal(t, 2, ledger.Available())
}
