package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"boxoffice/entities"
	"boxoffice/message/event"
	"boxoffice/message/outbox"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type IReservationRepository interface {
	Create(ctx context.Context, reservation entities.Reservation, ttl time.Duration) (entities.ReservationCreateResponse, error)
	GetByID(ctx context.Context, reservationID uuid.UUID) (entities.Reservation, error)
	Cancel(ctx context.Context, reservationID uuid.UUID) error
	Consume(ctx context.Context, reservationID uuid.UUID) (entities.Reservation, error)
	SweepExpired(ctx context.Context) (int, error)
}

// ReservationRepository manages the short-lived holds against inventory. A
// reservation reaches exactly one terminal status; every transition is a
// guarded update so racing transitions (consume vs sweep vs cancel) resolve
// to a single winner.
type ReservationRepository struct {
	db *DB
}

func NewReservationRepository(db *DB) ReservationRepository {
	if db == nil {
		panic("db is nil")
	}
	return ReservationRepository{
		db: db,
	}
}

// Create reserves inventory and inserts the pending hold in one transaction:
// if the guarded reserve loses, no reservation row appears.
func (r ReservationRepository) Create(ctx context.Context, reservation entities.Reservation, ttl time.Duration) (entities.ReservationCreateResponse, error) {
	now := time.Now().UTC()
	reservation.Status = entities.ReservationPending
	reservation.CreatedAt = now
	reservation.ExpiresAt = now.Add(ttl)

	err := updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		err := reserveInventory(ctx, tx, reservation.EventID, reservation.TicketTypeID, reservation.Quantity)
		if err != nil {
			return err
		}

		_, err = tx.NamedExecContext(ctx, `
			INSERT INTO
			    reservations (reservation_id, event_id, ticket_type_id, user_id, quantity, status, created_at, expires_at)
			VALUES
			    (:reservation_id, :event_id, :ticket_type_id, :user_id, :quantity, :status, :created_at, :expires_at)`,
			reservation,
		)
		if err != nil {
			return fmt.Errorf("could not insert reservation: %w", err)
		}
		return nil
	})
	if err != nil {
		return entities.ReservationCreateResponse{}, err
	}

	return entities.ReservationCreateResponse{
		ReservationID: reservation.ReservationID,
		ExpiresAt:     reservation.ExpiresAt,
	}, nil
}

func (r ReservationRepository) GetByID(ctx context.Context, reservationID uuid.UUID) (entities.Reservation, error) {
	var reservation entities.Reservation
	err := r.db.Conn.GetContext(ctx, &reservation, `
		SELECT
		    reservation_id, event_id, ticket_type_id, user_id, quantity, status, created_at, expires_at
		FROM
		    reservations
		WHERE
		    reservation_id = $1
	`, reservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Reservation{}, entities.ErrReservationNotFound
	}
	if err != nil {
		return entities.Reservation{}, fmt.Errorf("could not get reservation: %w", err)
	}
	return reservation, nil
}

// Cancel is the user-initiated transition. Cancelling an already-cancelled
// reservation is a no-op; any other terminal status wins and is reported.
func (r ReservationRepository) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	return updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var reservation entities.Reservation
		err := tx.GetContext(ctx, &reservation, `
			UPDATE reservations
			SET status = 'cancelled'
			WHERE reservation_id = $1 AND status = 'pending'
			RETURNING reservation_id, event_id, ticket_type_id, user_id, quantity, status, created_at, expires_at`,
			reservationID,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return r.loseTransitionError(ctx, tx, reservationID, entities.ReservationCancelled)
		}
		if err != nil {
			return fmt.Errorf("could not cancel reservation: %w", err)
		}

		return releaseInventory(ctx, tx, reservation.EventID, reservation.TicketTypeID, reservation.Quantity)
	})
}

// Consume flips pending -> consumed and moves the held quantity to sold.
// Exposed for direct callers; checkout runs the same logic through
// consumeReservationInTx inside its own transaction.
func (r ReservationRepository) Consume(ctx context.Context, reservationID uuid.UUID) (entities.Reservation, error) {
	var reservation entities.Reservation
	err := updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var err error
		reservation, err = consumeReservationInTx(ctx, tx, reservationID)
		return err
	})
	return reservation, err
}

// consumeReservationInTx is the linchpin against double-spending one
// reservation: it locks the row, re-checks pending and unexpired under the
// lock, and flips the status with a guard that re-states both conditions.
func consumeReservationInTx(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID) (entities.Reservation, error) {
	var reservation entities.Reservation
	err := tx.GetContext(ctx, &reservation, `
		SELECT
		    reservation_id, event_id, ticket_type_id, user_id, quantity, status, created_at, expires_at
		FROM
		    reservations
		WHERE
		    reservation_id = $1
		FOR UPDATE`,
		reservationID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Reservation{}, entities.ErrReservationNotFound
	}
	if err != nil {
		return entities.Reservation{}, fmt.Errorf("could not lock reservation: %w", err)
	}

	switch reservation.Status {
	case entities.ReservationPending:
		// proceed to the guarded flip
	case entities.ReservationConsumed:
		return entities.Reservation{}, entities.ErrAlreadyConsumed
	default:
		return entities.Reservation{}, entities.ErrReservationExpired
	}

	if !reservation.ExpiresAt.After(time.Now()) {
		// expired but not yet swept; the sweeper releases the hold
		return entities.Reservation{}, entities.ErrReservationExpired
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE reservations
		SET status = 'consumed'
		WHERE reservation_id = $1 AND status = 'pending' AND expires_at > now()`,
		reservationID,
	)
	if err != nil {
		return entities.Reservation{}, fmt.Errorf("could not consume reservation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return entities.Reservation{}, fmt.Errorf("could not read consume result: %w", err)
	}
	if affected == 0 {
		return entities.Reservation{}, entities.ErrReservationExpired
	}

	if err := commitInventorySale(ctx, tx, reservation.EventID, reservation.TicketTypeID, reservation.Quantity); err != nil {
		return entities.Reservation{}, err
	}

	reservation.Status = entities.ReservationConsumed
	return reservation, nil
}

// SweepExpired transitions every overdue pending reservation to expired and
// releases its hold. The status guard makes concurrent sweepers and racing
// consumers safe: whichever transition lands first wins, the loser's guard
// matches no row.
func (r ReservationRepository) SweepExpired(ctx context.Context) (int, error) {
	var swept int
	err := updateInTx(ctx, r.db.Conn, sql.LevelReadCommitted, func(ctx context.Context, tx *sqlx.Tx) error {
		var expired []entities.Reservation
		err := tx.SelectContext(ctx, &expired, `
			UPDATE reservations
			SET status = 'expired'
			WHERE status = 'pending' AND expires_at < now()
			RETURNING reservation_id, event_id, ticket_type_id, user_id, quantity, status, created_at, expires_at`,
		)
		if err != nil {
			return fmt.Errorf("could not expire reservations: %w", err)
		}
		if len(expired) == 0 {
			return nil
		}

		outboxPublisher, err := outbox.NewPublisherForDb(ctx, tx)
		if err != nil {
			return fmt.Errorf("could not create outbox publisher: %w", err)
		}
		eventBus := event.NewBus(outboxPublisher)

		for _, reservation := range expired {
			err := releaseInventory(ctx, tx, reservation.EventID, reservation.TicketTypeID, reservation.Quantity)
			if err != nil {
				return err
			}

			err = eventBus.Publish(ctx, entities.ReservationExpired_v1{
				Header:        entities.NewEventHeader(),
				ReservationID: reservation.ReservationID,
				EventID:       reservation.EventID,
				TicketTypeID:  reservation.TicketTypeID,
				Quantity:      reservation.Quantity,
			})
			if err != nil {
				return fmt.Errorf("could not publish ReservationExpired_v1: %w", err)
			}
		}

		swept = len(expired)
		return nil
	})
	return swept, err
}

func (r ReservationRepository) loseTransitionError(ctx context.Context, tx *sqlx.Tx, reservationID uuid.UUID, wanted entities.ReservationStatus) error {
	var status entities.ReservationStatus
	err := tx.GetContext(ctx, &status, `SELECT status FROM reservations WHERE reservation_id = $1`, reservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.ErrReservationNotFound
	}
	if err != nil {
		return fmt.Errorf("could not read reservation status: %w", err)
	}

	if status == wanted {
		// another caller already performed the same transition
		return nil
	}
	if status == entities.ReservationConsumed {
		return entities.ErrAlreadyConsumed
	}
	return entities.ErrReservationExpired
}
